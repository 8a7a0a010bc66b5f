package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
)

// AuditService exposes the per-user trail of vault operations.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager) *AuditService {
	return &AuditService{db: db, repomanager: m}
}

// List returns the requester's audit entries, newest first.
func (s *AuditService) List(ctx context.Context, requesterID string) ([]*models.AuditLog, error) {
	return s.repomanager.AuditLogs(s.db).ListByUser(ctx, requesterID)
}
