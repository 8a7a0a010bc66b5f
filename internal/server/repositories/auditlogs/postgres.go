// Package auditlogs records one row per vault operation for later review.
package auditlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/secureshare/internal/dbx"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `INSERT INTO audit_logs (id, user_id, action, filename) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.Action, entry.Filename); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, filename, created_at FROM audit_logs
		WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit logs: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditLog
	for rows.Next() {
		var item models.AuditLog
		if err := rows.Scan(&item.ID, &item.UserID, &item.Action, &item.Filename, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
