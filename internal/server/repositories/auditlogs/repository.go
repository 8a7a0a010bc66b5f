package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByUser(ctx context.Context, userID string) ([]*models.AuditLog, error)
}
