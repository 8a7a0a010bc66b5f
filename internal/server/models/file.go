// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is one owned copy of an encrypted document. Conceptually it is two
// parts persisted flat: an immutable ciphertext envelope (Ciphertext, IV,
// AuthTag, Signature) copied byte-for-byte between lineage members, and a
// per-owner key wrapper (WrappedKey), always wrapped under the owner's
// public key so a row is only decryptable by its current owner.
type File struct {
	ID      string
	OwnerID string
	// OriginalFileID points at the lineage root. The root row references
	// itself; shared copies reference the root directly, never an
	// intermediate copy.
	OriginalFileID string

	Ciphertext []byte
	// WrappedKey is the RSA-OAEP wrapped AES key, base64.
	WrappedKey string
	// IV is the 96-bit GCM nonce, base64.
	IV string
	// AuthTag is the 16-byte GCM tag, base64, kept apart from the
	// ciphertext so the stored blob stays plaintext-sized.
	AuthTag string
	// Signature is the sender's signature over filename||description||category, base64.
	Signature string

	Filename    string
	Description string
	Category    string
	ContentType string
	CreatedAt   time.Time
}

// IsRoot reports whether this row is the lineage root (the original upload).
func (f *File) IsRoot() bool {
	return f.OriginalFileID == f.ID
}
