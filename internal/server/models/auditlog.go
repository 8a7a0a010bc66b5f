package models

import "time"

// AuditLog records one engine operation for later review.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Filename  string
	CreatedAt time.Time
}
