package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/dbx"
	sc "github.com/dmitrijs2005/secureshare/internal/server/config"
	"github.com/dmitrijs2005/secureshare/internal/server/mail"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AWS seams, swapped out in tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportService hands the stored ciphertext of a file to its owner out of
// band: the encrypted blob goes to object storage and a presigned download
// link is returned, while the unwrapped key, IV, and tag travel separately
// by email. The server never uploads plaintext.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	vault       *VaultService
	mailer      mail.Mailer
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, vault *VaultService, mailer mail.Mailer) *ExportService {
	return &ExportService{db: db, repomanager: m, config: cfg, vault: vault, mailer: mailer}
}

func exportStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("exports/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads the requester's encrypted copy to the object store and
// returns a presigned GET URL valid for 15 minutes. The symmetric key, IV,
// and tag needed to open the blob offline are mailed to the requester.
func (s *ExportService) Export(ctx context.Context, fileID, requesterID string) (string, error) {
	file, err := s.repomanager.Files(s.db).Get(ctx, fileID)
	if err != nil {
		return "", err
	}
	if file.OwnerID != requesterID {
		return "", common.ErrForbidden
	}

	requester, err := s.repomanager.Users(s.db).GetByID(ctx, requesterID)
	if err != nil {
		return "", err
	}

	key, err := s.vault.unwrapFileKey(file, requester)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	client, err := s.getS3Client()
	if err != nil {
		return "", fmt.Errorf("connecting to object storage: %w", err)
	}

	storageKey := exportStorageKey()
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(storageKey),
		Body:        bytes.NewReader(file.Ciphertext),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return "", fmt.Errorf("uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presigning export url: %w", err)
	}

	material, err := json.Marshal(map[string]string{
		"algorithm": "AES-256-GCM",
		"key":       base64.StdEncoding.EncodeToString(key),
		"iv":        file.IV,
		"tag":       file.AuthTag,
	})
	if err != nil {
		return "", common.ErrInternal
	}
	body := fmt.Sprintf(
		"Decryption material for %q:\n\n%s\n\nThe download link expires in 15 minutes.",
		file.Filename, material)
	if err := s.mailer.Send(ctx, requester.Email, "Export decryption keys", body); err != nil {
		return "", fmt.Errorf("mailing keys: %w", err)
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.vault.audit(ctx, tx, requesterID, ActionExport, file.Filename)
	}); err != nil {
		return "", err
	}

	return req.URL, nil
}
