package otps

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(2 * time.Minute)
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+otps.*ON\s+CONFLICT\s+\(email\)`).
		WithArgs("alice@example.com", "654321", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Otp{
		Email:     "alice@example.com",
		Code:      "654321",
		ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
}

func TestConsume_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Minute)
	mock.ExpectQuery(`DELETE\s+FROM\s+otps\s+WHERE\s+email\s*=\s*\$1\s+RETURNING\s+code,\s*expires_at`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"code", "expires_at"}).AddRow("654321", expires))

	got, err := repo.Consume(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if got.Code != "654321" || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected otp: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}

func TestConsume_NothingPending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`DELETE\s+FROM\s+otps\s+WHERE\s+email\s*=\s*\$1\s+RETURNING`).
		WithArgs("alice@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "alice@example.com")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
