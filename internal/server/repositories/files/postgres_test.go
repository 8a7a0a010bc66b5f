package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func testFile() *models.File {
	return &models.File{
		ID:             "f-1",
		OwnerID:        "u-1",
		OriginalFileID: "f-1",
		Ciphertext:     []byte("ct"),
		WrappedKey:     "wk",
		IV:             "iv",
		AuthTag:        "tag",
		Signature:      "sig",
		Filename:       "report.pdf",
		Description:    "desc",
		Category:       "finance",
		ContentType:    "application/pdf",
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+files`).
		WithArgs("f-1", "u-1", "f-1", []byte("ct"), "wk", "iv", "tag", "sig",
			"report.pdf", "desc", "finance", "application/pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), testFile()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_LineageOwnerConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+files`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), testFile())
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "original_file_id", "ciphertext", "wrapped_key",
		"iv", "auth_tag", "signature", "filename", "description", "category", "content_type", "created_at"}).
		AddRow("f-1", "u-1", "f-1", []byte("ct"), "wk", "iv", "tag", "sig",
			"report.pdf", "desc", "finance", "application/pdf", time.Now())
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*owner_id,\s*original_file_id,\s*ciphertext.*FROM\s+files\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("f-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != "f-1" || !got.IsRoot() || string(got.Ciphertext) != "ct" {
		t.Fatalf("unexpected file: %+v", got)
	}
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "original_file_id", "ciphertext", "wrapped_key",
		"iv", "auth_tag", "signature", "filename", "description", "category", "content_type", "created_at"}).
		AddRow("f-1", "u-1", "f-1", []byte("ct"), "wk", "iv", "tag", "sig",
			"report.pdf", "desc", "finance", "application/pdf", time.Now())
	mock.ExpectQuery(`(?s)SELECT\s+id,.*FROM\s+files\s+WHERE\s+id\s*=\s*\$1.*FOR\s+UPDATE`).
		WithArgs("f-1").
		WillReturnRows(rows)

	got, err := repo.GetForUpdate(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}
	if got.ID != "f-1" {
		t.Fatalf("unexpected file: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*owner_id.*FROM\s+files\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExistsByRootAndOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs("root-1", "u-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByRootAndOwner(context.Background(), "root-1", "u-2")
	if err != nil {
		t.Fatalf("ExistsByRootAndOwner error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+files\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByIDs_EmptyIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	if err := repo.DeleteByIDs(context.Background(), nil); err != nil {
		t.Fatalf("DeleteByIDs error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}

func TestListByOwner_Keyword(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "original_file_id", "filename",
		"description", "category", "content_type", "created_at"}).
		AddRow("f-1", "u-1", "f-1", "report.pdf", "desc", "finance", "application/pdf", time.Now())
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*owner_id,\s*original_file_id,\s*filename.*WHERE\s+owner_id\s*=\s*\$1`).
		WithArgs("u-1", "Rep", "%rep%").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u-1", "Rep")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 1 || got[0].Filename != "report.pdf" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].Ciphertext != nil {
		t.Fatalf("listing must not carry ciphertext")
	}
}
