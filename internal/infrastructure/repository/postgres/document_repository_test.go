package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		_ = db.Close()
	}
	return NewDocumentRepository(db), mock, cleanup
}

func TestCreateInsertsRow(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        "doc-1",
		Title:     "notes",
		Content:   "hello world",
		WordCount: 2,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "notes", "hello world", 2, false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreateWrapsPersistenceFailure(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(errors.New("connection reset by peer"))

	err := repo.Create(context.Background(), &domain.Document{ID: "doc-1"})
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestGetByIDReturnsDocument(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "content", "word_count", "embedded", "created_at", "updated_at"}).
		AddRow("doc-1", "notes", "hello world", 2, true, now, now)

	mock.ExpectQuery("SELECT id, title, content, word_count, embedded").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Title != "notes" || doc.WordCount != 2 || !doc.Embedded {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, title, content, word_count, embedded").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestMarkEmbeddedUpdatesRow(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkEmbedded(context.Background(), "doc-1"); err != nil {
		t.Fatalf("mark embedded: %v", err)
	}
}

func TestMarkEmbeddedNotFoundOnZeroRows(t *testing.T) {
	repo, mock, cleanup := newRepoWithMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkEmbedded(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
