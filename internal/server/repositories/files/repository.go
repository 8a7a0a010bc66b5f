package files

import (
	"context"

	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	Get(ctx context.Context, id string) (*models.File, error)
	// GetForUpdate loads a row and holds a row lock on it until the
	// surrounding transaction ends. Share and the deletion cascades lock
	// the lineage root this way so operations on one lineage serialize.
	GetForUpdate(ctx context.Context, id string) (*models.File, error)
	ListByOwner(ctx context.Context, ownerID, keyword string) ([]*models.File, error)
	ExistsByRootAndOwner(ctx context.Context, rootID, ownerID string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}
