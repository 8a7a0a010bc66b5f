package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/dbx"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a file row. The unique index on (original_file_id, owner_id)
// turns a concurrent duplicate share into common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, owner_id, original_file_id, ciphertext, wrapped_key,
			iv, auth_tag, signature, filename, description, category, content_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.OwnerID, file.OriginalFileID, file.Ciphertext, file.WrappedKey,
		file.IV, file.AuthTag, file.Signature, file.Filename, file.Description,
		file.Category, file.ContentType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.File, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate takes a row lock held until the surrounding transaction
// ends; concurrent shares and cascade deletes on the same lineage queue
// behind it.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.File, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresRepository) get(ctx context.Context, id string, forUpdate bool) (*models.File, error) {
	query := `
		SELECT id, owner_id, original_file_id, ciphertext, wrapped_key,
			iv, auth_tag, signature, filename, description, category, content_type, created_at
		FROM files WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.OwnerID, &file.OriginalFileID, &file.Ciphertext, &file.WrappedKey,
		&file.IV, &file.AuthTag, &file.Signature, &file.Filename, &file.Description,
		&file.Category, &file.ContentType, &file.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// ListByOwner returns metadata (no ciphertext or key material) of the
// owner's rows, optionally filtered by a keyword over filename, description
// and category.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID, keyword string) ([]*models.File, error) {
	query := `
		SELECT id, owner_id, original_file_id, filename, description, category, content_type, created_at
		FROM files
		WHERE owner_id = $1
		  AND ($2 = '' OR lower(filename) LIKE $3 OR lower(description) LIKE $3 OR lower(category) LIKE $3)
		ORDER BY created_at DESC
	`
	like := "%" + strings.ToLower(keyword) + "%"
	rows, err := r.db.QueryContext(ctx, query, ownerID, keyword, like)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.OriginalFileID, &item.Filename,
			&item.Description, &item.Category, &item.ContentType, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ExistsByRootAndOwner reports whether ownerID already holds a copy in the
// lineage rooted at rootID (the duplicate-share guard).
func (r *PostgresRepository) ExistsByRootAndOwner(ctx context.Context, rootID, ownerID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM files WHERE original_file_id = $1 AND owner_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, rootID, ownerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Delete removes a single row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByIDs removes the given rows; a nil or empty list is a no-op.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM files WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, ids); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

