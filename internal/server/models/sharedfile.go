package models

import "time"

// SharedFile is one ledger entry: the edge recorded when a sender grants a
// recipient a copy. It is created in the same transaction as the recipient's
// File row and deleted with it.
type SharedFile struct {
	ID             string
	OriginalFileID string
	NewFileID      string
	SenderID       string
	RecipientID    string
	Filename       string
	Category       string
	IsSensitive    bool
	SharedAt       time.Time
}
