package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
)

// ShareInfo is one ledger entry resolved for display: ids replaced with
// usernames.
type ShareInfo struct {
	ID          string
	Filename    string
	Category    string
	Sender      string
	Recipient   string
	IsSensitive bool
	SharedAt    string
}

// SharedFilesService answers questions about the share ledger: what did I
// share, what was shared with me, and who holds copies of a given file.
type SharedFilesService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSharedFilesService(db *sql.DB, m repomanager.RepositoryManager) *SharedFilesService {
	return &SharedFilesService{db: db, repomanager: m}
}

// ListSharedByMe returns the requester's outgoing shares, optionally
// filtered by sensitivity.
func (s *SharedFilesService) ListSharedByMe(ctx context.Context, requesterID string, sensitive *bool) ([]*ShareInfo, error) {
	entries, err := s.repomanager.SharedFiles(s.db).ListBySender(ctx, requesterID, sensitive)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entries)
}

// ListSharedToMe returns the requester's incoming shares, optionally
// filtered by sensitivity.
func (s *SharedFilesService) ListSharedToMe(ctx context.Context, requesterID string, sensitive *bool) ([]*ShareInfo, error) {
	entries, err := s.repomanager.SharedFiles(s.db).ListByRecipient(ctx, requesterID, sensitive)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, entries)
}

// ListRecipients returns the usernames currently holding copies of the
// given file's lineage. Only the row owner may ask, and only about a
// lineage root.
func (s *SharedFilesService) ListRecipients(ctx context.Context, fileID, requesterID string) ([]string, error) {
	file, err := s.repomanager.Files(s.db).Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != requesterID {
		return nil, common.ErrForbidden
	}
	if !file.IsRoot() {
		return nil, common.ErrForbidden
	}

	entries, err := s.repomanager.SharedFiles(s.db).ListByRoot(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	userRepo := s.repomanager.Users(s.db)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		u, err := userRepo.GetByID(ctx, e.RecipientID)
		if err != nil {
			return nil, err
		}
		names = append(names, u.Username)
	}
	return names, nil
}

func (s *SharedFilesService) resolve(ctx context.Context, entries []*models.SharedFile) ([]*ShareInfo, error) {
	userRepo := s.repomanager.Users(s.db)

	// id -> username, fetched once per distinct user
	names := map[string]string{}
	lookup := func(id string) (string, error) {
		if name, ok := names[id]; ok {
			return name, nil
		}
		u, err := userRepo.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		names[id] = u.Username
		return u.Username, nil
	}

	result := make([]*ShareInfo, 0, len(entries))
	for _, e := range entries {
		sender, err := lookup(e.SenderID)
		if err != nil {
			return nil, err
		}
		recipient, err := lookup(e.RecipientID)
		if err != nil {
			return nil, err
		}
		result = append(result, &ShareInfo{
			ID:          e.ID,
			Filename:    e.Filename,
			Category:    e.Category,
			Sender:      sender,
			Recipient:   recipient,
			IsSensitive: e.IsSensitive,
			SharedAt:    e.SharedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return result, nil
}
