// Package common defines shared constants and sentinel errors used across
// the layers of the secureshare server. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input that fails validation before any work is done
	// (empty payload, unknown deletion type, empty recipient list).
	ErrValidation = errors.New("validation error")

	// Ownership or authorization violations on a file row.
	ErrForbidden = errors.New("forbidden")

	// Duplicate share: the recipient already owns a copy in this lineage.
	ErrConflict = errors.New("already exists")

	// ErrCrypto covers every key-material fault: master-key unseal,
	// RSA wrap/unwrap, signing. Deliberately coarse so callers cannot
	// tell which step failed.
	ErrCrypto = errors.New("cryptographic error")

	// ErrIntegrity is returned when a GCM tag or a metadata signature
	// does not verify.
	ErrIntegrity = errors.New("integrity check failed")

	// Missing credentials, bad password, or a sensitive share without
	// a valid one-time code.
	ErrUnauthorized = errors.New("unauthorized")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
