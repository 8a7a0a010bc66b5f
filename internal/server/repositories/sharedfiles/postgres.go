// Package sharedfiles persists the share ledger: one row per share edge,
// created and deleted in the same transaction as the recipient's file row.
package sharedfiles

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, entry *models.SharedFile) error {
	query := `
		INSERT INTO shared_files (id, original_file_id, new_file_id, sender_id,
			recipient_id, filename, category, is_sensitive)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.OriginalFileID, entry.NewFileID, entry.SenderID,
		entry.RecipientID, entry.Filename, entry.Category, entry.IsSensitive)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, original_file_id, new_file_id, sender_id, recipient_id,
		filename, category, is_sensitive, shared_at
	FROM shared_files
`

// ListByRoot returns every share edge of one lineage, used by the
// "everyone" deletion cascade and recipient enumeration.
func (r *PostgresRepository) ListByRoot(ctx context.Context, rootID string) ([]*models.SharedFile, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE original_file_id = $1 ORDER BY shared_at`, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to select share entries: %w", err)
	}
	return scanEntries(rows)
}

// ListByRootAndRecipients returns the edges of one lineage limited to the
// given recipient ids, used by the "list" deletion.
func (r *PostgresRepository) ListByRootAndRecipients(ctx context.Context, rootID string, recipientIDs []string) ([]*models.SharedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE original_file_id = $1 AND recipient_id = ANY($2) ORDER BY shared_at`,
		rootID, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to select share entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *PostgresRepository) ListBySender(ctx context.Context, senderID string, sensitive *bool) ([]*models.SharedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE sender_id = $1 AND ($2::boolean IS NULL OR is_sensitive = $2) ORDER BY shared_at DESC`,
		senderID, sensitive)
	if err != nil {
		return nil, fmt.Errorf("failed to select share entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string, sensitive *bool) ([]*models.SharedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE recipient_id = $1 AND ($2::boolean IS NULL OR is_sensitive = $2) ORDER BY shared_at DESC`,
		recipientID, sensitive)
	if err != nil {
		return nil, fmt.Errorf("failed to select share entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shared_files WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByNewFileID removes the single edge that produced a shared copy,
// used when the copy's owner deletes it.
func (r *PostgresRepository) DeleteByNewFileID(ctx context.Context, newFileID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shared_files WHERE new_file_id = $1`, newFileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]*models.SharedFile, error) {
	defer rows.Close()

	var result []*models.SharedFile
	for rows.Next() {
		var item models.SharedFile
		if err := rows.Scan(&item.ID, &item.OriginalFileID, &item.NewFileID, &item.SenderID,
			&item.RecipientID, &item.Filename, &item.Category, &item.IsSensitive, &item.SharedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
