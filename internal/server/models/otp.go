package models

import "time"

// Otp is a pending one-time code for an email address. A code is single
// use and expires two minutes after issue; issuing a new code replaces any
// pending one.
type Otp struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
