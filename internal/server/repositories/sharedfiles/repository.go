package sharedfiles

import (
	"context"

	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.SharedFile) error
	ListByRoot(ctx context.Context, rootID string) ([]*models.SharedFile, error)
	ListByRootAndRecipients(ctx context.Context, rootID string, recipientIDs []string) ([]*models.SharedFile, error)
	ListBySender(ctx context.Context, senderID string, sensitive *bool) ([]*models.SharedFile, error)
	ListByRecipient(ctx context.Context, recipientID string, sensitive *bool) ([]*models.SharedFile, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteByNewFileID(ctx context.Context, newFileID string) error
}
