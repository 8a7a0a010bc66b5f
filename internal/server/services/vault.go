// Package services contains the server-side business logic. This file
// implements VaultService, the envelope-encryption engine: upload,
// download, share, and the deletion cascades. Per-file AES keys and
// unwrapped private keys live only on the stack of a single call and are
// wiped as soon as the operation is done with them.
package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/cryptox"
	"github.com/dmitrijs2005/secureshare/internal/dbx"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/files"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Deletion scopes accepted by Delete.
const (
	DeleteMe       = "me"
	DeleteEveryone = "everyone"
	DeleteList     = "list"
)

// Audit actions recorded by the vault.
const (
	ActionUpload   = "upload"
	ActionDownload = "download"
	ActionShare    = "share"
	ActionDelete   = "delete"
	ActionExport   = "export"
)

// VaultService orchestrates the encryption engine over the repositories.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	masterKey   []byte
	otp         *OtpService
}

// NewVaultService constructs a VaultService. masterKey is the decoded
// process master key; otp gates sensitive shares.
func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, masterKey []byte, otp *OtpService) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		masterKey:   masterKey,
		otp:         otp,
	}
}

// UploadRequest carries one file to store.
type UploadRequest struct {
	OwnerID     string
	Filename    string
	ContentType string
	Description string
	Category    string
	Data        []byte
}

// DownloadResult is the decrypted payload with its display metadata.
type DownloadResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// metadataBytes is the byte string covered by the provenance signature.
func metadataBytes(filename, description, category string) []byte {
	return []byte(filename + description + category)
}

// Upload encrypts and stores a new file owned by the uploader:
// a fresh AES-256 key encrypts the payload, the key is wrapped under the
// uploader's public key, and the display metadata is signed with the
// uploader's private key. The row id is generated up front so the lineage
// root can reference itself in a single insert.
func (s *VaultService) Upload(ctx context.Context, req *UploadRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", fmt.Errorf("empty payload: %w", common.ErrValidation)
	}
	if req.Filename == "" {
		return "", fmt.Errorf("missing filename: %w", common.ErrValidation)
	}

	owner, err := s.repomanager.Users(s.db).GetByID(ctx, req.OwnerID)
	if err != nil {
		return "", fmt.Errorf("loading uploader: %w", err)
	}

	priv, err := cryptox.UnwrapPrivateKey(owner.PrivateKeyWrapped, s.masterKey)
	if err != nil {
		return "", err
	}
	signature, err := cryptox.Sign(metadataBytes(req.Filename, req.Description, req.Category), priv)
	if err != nil {
		return "", err
	}

	key := cryptox.GenerateKey()
	defer common.WipeByteArray(key)

	ciphertext, iv, tag, err := cryptox.EncryptPayload(req.Data, key)
	if err != nil {
		return "", err
	}

	pub, err := cryptox.DecodePublicKey(owner.PublicKey)
	if err != nil {
		return "", err
	}
	wrappedKey, err := cryptox.WrapKey(key, pub)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	file := &models.File{
		ID:             id,
		OwnerID:        owner.ID,
		OriginalFileID: id, // self-reference marks the lineage root
		Ciphertext:     ciphertext,
		WrappedKey:     base64.StdEncoding.EncodeToString(wrappedKey),
		IV:             base64.StdEncoding.EncodeToString(iv),
		AuthTag:        base64.StdEncoding.EncodeToString(tag),
		Signature:      base64.StdEncoding.EncodeToString(signature),
		Filename:       req.Filename,
		Description:    req.Description,
		Category:       req.Category,
		ContentType:    req.ContentType,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		return s.audit(ctx, tx, owner.ID, ActionUpload, file.Filename)
	})
	if err != nil {
		return "", fmt.Errorf("persisting file: %w", err)
	}

	return id, nil
}

// Download returns the decrypted payload of a row owned by the requester.
// The metadata signature is checked against the lineage root owner's public
// key before any key material is unwrapped; payload integrity itself rests
// on the GCM tag.
func (s *VaultService) Download(ctx context.Context, fileID, requesterID string) (*DownloadResult, error) {
	fileRepo := s.repomanager.Files(s.db)

	file, err := fileRepo.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != requesterID {
		return nil, common.ErrForbidden
	}

	if err := s.verifyLineageSignature(ctx, s.db, file); err != nil {
		return nil, err
	}

	requester, err := s.repomanager.Users(s.db).GetByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("loading requester: %w", err)
	}

	data, err := s.decryptFor(file, requester)
	if err != nil {
		return nil, err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.audit(ctx, tx, requesterID, ActionDownload, file.Filename)
	}); err != nil {
		return nil, err
	}

	return &DownloadResult{Data: data, Filename: file.Filename, ContentType: file.ContentType}, nil
}

// Share re-wraps the symmetric key of a file the sender owns under the
// recipient's public key and persists the recipient's copy together with
// its ledger entry as one unit. The ciphertext envelope is copied
// byte-for-byte; the payload is never re-encrypted. The whole
// read-verify-rewrap-write sequence runs in one transaction holding a row
// lock on the lineage root, so it serializes against concurrent shares
// and cascade deletes of the same lineage.
func (s *VaultService) Share(ctx context.Context, fileID, senderID, recipientUsername string, sensitive bool, otpCode string) (string, error) {
	var copyID string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := s.repomanager.Users(tx)
		fileRepo := s.repomanager.Files(tx)

		file, err := fileRepo.GetForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if file.OwnerID != senderID {
			return common.ErrForbidden
		}
		if err := s.lockLineageRoot(ctx, fileRepo, file); err != nil {
			return err
		}

		sender, err := userRepo.GetByID(ctx, senderID)
		if err != nil {
			return fmt.Errorf("loading sender: %w", err)
		}

		if sensitive {
			if err := s.otp.Verify(ctx, sender.Email, otpCode); err != nil {
				return err
			}
		}

		recipient, err := userRepo.GetByUsername(ctx, recipientUsername)
		if err != nil {
			return err
		}

		rootID := file.OriginalFileID
		exists, err := fileRepo.ExistsByRootAndOwner(ctx, rootID, recipient.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("recipient already has access: %w", common.ErrConflict)
		}

		if err := s.verifyLineageSignature(ctx, tx, file); err != nil {
			return err
		}

		key, err := s.unwrapFileKey(file, sender)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(key)

		recipientPub, err := cryptox.DecodePublicKey(recipient.PublicKey)
		if err != nil {
			return err
		}
		rewrapped, err := cryptox.WrapKey(key, recipientPub)
		if err != nil {
			return err
		}

		copyRow := &models.File{
			ID:             uuid.NewString(),
			OwnerID:        recipient.ID,
			OriginalFileID: rootID,
			Ciphertext:     file.Ciphertext,
			WrappedKey:     base64.StdEncoding.EncodeToString(rewrapped),
			IV:             file.IV,
			AuthTag:        file.AuthTag,
			Signature:      file.Signature,
			Filename:       file.Filename,
			Description:    file.Description,
			Category:       file.Category,
			ContentType:    file.ContentType,
		}

		entry := &models.SharedFile{
			ID:             uuid.NewString(),
			OriginalFileID: rootID,
			NewFileID:      copyRow.ID,
			SenderID:       sender.ID,
			RecipientID:    recipient.ID,
			Filename:       file.Filename,
			Category:       file.Category,
			IsSensitive:    sensitive,
		}

		if err := fileRepo.Create(ctx, copyRow); err != nil {
			return err
		}
		if err := s.repomanager.SharedFiles(tx).Create(ctx, entry); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, sender.ID, ActionShare, file.Filename); err != nil {
			return err
		}

		copyID = copyRow.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	return copyID, nil
}

// lockLineageRoot locks the root row of the file's lineage. A root deleted
// "for me" leaves nothing to lock; the unique (original_file_id, owner_id)
// index still closes the duplicate-share race for that lineage.
func (s *VaultService) lockLineageRoot(ctx context.Context, fileRepo files.Repository, file *models.File) error {
	if file.IsRoot() {
		return nil
	}
	if _, err := fileRepo.GetForUpdate(ctx, file.OriginalFileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Delete removes rows according to deletionType. On a lineage root, "me"
// removes only the root (copies keep working: each holds its own wrapped
// key), "everyone" cascades through the ledger, and "list" removes the
// named recipients' copies. A shared copy only accepts "me". Each call
// runs as one transaction that first locks the lineage root row, so the
// ledger is listed and pruned under the same lock a concurrent Share of
// the lineage would have to wait for.
func (s *VaultService) Delete(ctx context.Context, fileID, deletionType string, recipientUsernames []string, requesterID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fileRepo := s.repomanager.Files(tx)

		file, err := fileRepo.GetForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if file.OwnerID != requesterID {
			return common.ErrForbidden
		}

		if !file.IsRoot() {
			if deletionType != DeleteMe {
				return fmt.Errorf("shared copies can only be deleted for yourself: %w", common.ErrValidation)
			}
			if err := s.lockLineageRoot(ctx, fileRepo, file); err != nil {
				return err
			}
			if err := fileRepo.Delete(ctx, file.ID); err != nil {
				return err
			}
			if err := s.repomanager.SharedFiles(tx).DeleteByNewFileID(ctx, file.ID); err != nil {
				return err
			}
			return s.audit(ctx, tx, requesterID, ActionDelete, file.Filename)
		}

		switch deletionType {
		case DeleteMe:
			if err := fileRepo.Delete(ctx, file.ID); err != nil {
				return err
			}
			return s.audit(ctx, tx, requesterID, ActionDelete, file.Filename)

		case DeleteEveryone:
			entries, err := s.repomanager.SharedFiles(tx).ListByRoot(ctx, file.ID)
			if err != nil {
				return err
			}
			if err := s.deleteEntries(ctx, tx, entries); err != nil {
				return err
			}
			if err := fileRepo.Delete(ctx, file.ID); err != nil {
				return err
			}
			return s.audit(ctx, tx, requesterID, ActionDelete, file.Filename)

		case DeleteList:
			if len(recipientUsernames) == 0 {
				return fmt.Errorf("empty recipient list: %w", common.ErrValidation)
			}
			userRepo := s.repomanager.Users(tx)
			recipientIDs := make([]string, 0, len(recipientUsernames))
			for _, name := range recipientUsernames {
				u, err := userRepo.GetByUsername(ctx, name)
				if err != nil {
					return fmt.Errorf("resolving recipient %q: %w", name, err)
				}
				recipientIDs = append(recipientIDs, u.ID)
			}
			entries, err := s.repomanager.SharedFiles(tx).ListByRootAndRecipients(ctx, file.ID, recipientIDs)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no share entries for the given recipients: %w", common.ErrNotFound)
			}
			if err := s.deleteEntries(ctx, tx, entries); err != nil {
				return err
			}
			return s.audit(ctx, tx, requesterID, ActionDelete, file.Filename)

		default:
			return fmt.Errorf("unknown deletion type %q: %w", deletionType, common.ErrValidation)
		}
	})
}

// ListFiles returns metadata of the requester's rows, optionally filtered
// by keyword.
func (s *VaultService) ListFiles(ctx context.Context, requesterID, keyword string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListByOwner(ctx, requesterID, keyword)
}

// deleteEntries removes ledger entries and the file rows they produced.
func (s *VaultService) deleteEntries(ctx context.Context, tx dbx.DBTX, entries []*models.SharedFile) error {
	entryIDs := make([]string, 0, len(entries))
	copyIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		entryIDs = append(entryIDs, e.ID)
		copyIDs = append(copyIDs, e.NewFileID)
	}
	if err := s.repomanager.SharedFiles(tx).DeleteByIDs(ctx, entryIDs); err != nil {
		return err
	}
	return s.repomanager.Files(tx).DeleteByIDs(ctx, copyIDs)
}

// verifyLineageSignature checks the row's metadata signature against the
// public key of the lineage root's owner. When the root row no longer
// exists (the original owner deleted it for themselves) provenance can no
// longer be established and the check is skipped so surviving copies stay
// readable.
func (s *VaultService) verifyLineageSignature(ctx context.Context, db dbx.DBTX, file *models.File) error {
	root := file
	if !file.IsRoot() {
		var err error
		root, err = s.repomanager.Files(db).Get(ctx, file.OriginalFileID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			return err
		}
	}

	rootOwner, err := s.repomanager.Users(db).GetByID(ctx, root.OwnerID)
	if err != nil {
		return fmt.Errorf("loading lineage owner: %w", err)
	}
	pub, err := cryptox.DecodePublicKey(rootOwner.PublicKey)
	if err != nil {
		return err
	}

	sig, err := base64.StdEncoding.DecodeString(file.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", common.ErrIntegrity)
	}
	if !cryptox.Verify(metadataBytes(file.Filename, file.Description, file.Category), sig, pub) {
		return fmt.Errorf("metadata signature mismatch: %w", common.ErrIntegrity)
	}
	return nil
}

// unwrapFileKey opens the row's wrapped symmetric key with the owner's
// private key. The caller owns the returned key and must wipe it.
func (s *VaultService) unwrapFileKey(file *models.File, owner *models.User) ([]byte, error) {
	priv, err := cryptox.UnwrapPrivateKey(owner.PrivateKeyWrapped, s.masterKey)
	if err != nil {
		return nil, err
	}
	wrapped, err := base64.StdEncoding.DecodeString(file.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("decoding wrapped key: %w", common.ErrCrypto)
	}
	return cryptox.UnwrapKey(wrapped, priv)
}

// decryptFor unwraps the row's symmetric key with the owner's private key
// and decrypts the payload.
func (s *VaultService) decryptFor(file *models.File, owner *models.User) ([]byte, error) {
	key, err := s.unwrapFileKey(file, owner)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	iv, err := base64.StdEncoding.DecodeString(file.IV)
	if err != nil {
		return nil, fmt.Errorf("decoding iv: %w", common.ErrCrypto)
	}
	tag, err := base64.StdEncoding.DecodeString(file.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("decoding tag: %w", common.ErrCrypto)
	}

	return cryptox.DecryptPayload(file.Ciphertext, tag, key, iv)
}

func (s *VaultService) audit(ctx context.Context, tx dbx.DBTX, userID, action, filename string) error {
	return s.repomanager.AuditLogs(tx).Create(ctx, &models.AuditLog{
		ID:       uuid.NewString(),
		UserID:   userID,
		Action:   action,
		Filename: filename,
	})
}
