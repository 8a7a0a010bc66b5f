package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtpService_GenerateAndSend(t *testing.T) {
	db, _ := newSQLMockDB(t)
	m := newFakeRepoManager()
	mailer := &fakeMailer{}
	svc := NewOtpService(db, m, mailer)
	alice := addTestUser(t, m, "alice")

	err := svc.GenerateAndSend(context.Background(), alice.ID)
	require.NoError(t, err)

	otp := m.o.byEmail[alice.Email]
	require.NotNil(t, otp)
	assert.Len(t, otp.Code, otpLength)
	assert.True(t, otp.ExpiresAt.After(time.Now()))

	require.Len(t, mailer.to, 1)
	assert.Equal(t, alice.Email, mailer.to[0])
	assert.Contains(t, mailer.bodies[0], otp.Code)
}

func TestOtpService_GenerateReplacesPending(t *testing.T) {
	db, _ := newSQLMockDB(t)
	m := newFakeRepoManager()
	svc := NewOtpService(db, m, &fakeMailer{})
	alice := addTestUser(t, m, "alice")

	// a planted marker that MakeRandDigits can never produce
	m.o.byEmail[alice.Email] = &models.Otp{
		Email:     alice.Email,
		Code:      "stale!",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, svc.GenerateAndSend(context.Background(), alice.ID))
	assert.NotEqual(t, "stale!", m.o.byEmail[alice.Email].Code)

	err := svc.Verify(context.Background(), alice.Email, "stale!")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestOtpService_VerifySingleUse(t *testing.T) {
	db, _ := newSQLMockDB(t)
	m := newFakeRepoManager()
	svc := NewOtpService(db, m, &fakeMailer{})
	alice := addTestUser(t, m, "alice")

	m.o.byEmail[alice.Email] = &models.Otp{
		Email:     alice.Email,
		Code:      "654321",
		ExpiresAt: time.Now().Add(time.Minute),
	}

	require.NoError(t, svc.Verify(context.Background(), alice.Email, "654321"))
	assert.Empty(t, m.o.byEmail, "verification consumes the row")

	err := svc.Verify(context.Background(), alice.Email, "654321")
	assert.ErrorIs(t, err, common.ErrUnauthorized, "a code cannot be replayed")
}

func TestOtpService_GenerateMailFailure(t *testing.T) {
	db, _ := newSQLMockDB(t)
	m := newFakeRepoManager()
	svc := NewOtpService(db, m, &fakeMailer{sendErr: errors.New("smtp down")})
	alice := addTestUser(t, m, "alice")

	err := svc.GenerateAndSend(context.Background(), alice.ID)
	assert.Error(t, err)
}

func TestOtpService_GenerateUnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	m := newFakeRepoManager()
	svc := NewOtpService(db, m, &fakeMailer{})

	err := svc.GenerateAndSend(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
