package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/server/mail"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/repomanager"
)

const (
	otpLength   = 6
	otpValidity = 2 * time.Minute
)

// OtpService issues and checks the one-time codes that gate sensitive
// shares. A code is bound to the sender's email, lives for two minutes,
// and is consumed on first verification regardless of outcome.
type OtpService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      mail.Mailer
}

func NewOtpService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer) *OtpService {
	return &OtpService{db: db, repomanager: m, mailer: mailer}
}

// GenerateAndSend issues a fresh code for the user's email, replacing any
// pending one, and delivers it by mail.
func (s *OtpService) GenerateAndSend(ctx context.Context, userID string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}

	code, err := common.MakeRandDigits(otpLength)
	if err != nil {
		return common.ErrInternal
	}

	otp := &models.Otp{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(otpValidity),
	}
	if err := s.repomanager.Otps(s.db).Upsert(ctx, otp); err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(otpValidity.Minutes()))
	if err := s.mailer.Send(ctx, user.Email, "Sensitive share verification code", body); err != nil {
		return fmt.Errorf("sending code: %w", err)
	}
	return nil
}

// Verify consumes the pending code for email and compares it against the
// submitted one in constant time. Missing, expired, and mismatched codes
// all yield ErrUnauthorized.
func (s *OtpService) Verify(ctx context.Context, email, code string) error {
	repo := s.repomanager.Otps(s.db)

	// one statement removes and returns the row, so the code is gone
	// before the comparison result matters
	otp, err := repo.Consume(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		return err
	}

	if time.Now().After(otp.ExpiresAt) {
		return common.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return common.ErrUnauthorized
	}
	return nil
}
