package models

import "time"

// User carries the account credentials and the key material custody state.
// PublicKey is stored as-is (base64 PKIX); PrivateKeyWrapped is the private
// key sealed under the process master key and is only ever opened inside
// the key custodian for the duration of a single operation.
type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	PublicKey         string
	PrivateKeyWrapped string
	CreatedAt         time.Time
}
