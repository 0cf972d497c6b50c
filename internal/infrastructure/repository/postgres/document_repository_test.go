package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

func newDocumentRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentRows(id, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tax_return_id", "file_name", "file_type", "file_size", "storage_path",
		"document_type", "status", "extracted_data", "full_text", "is_verified", "error_message",
		"created_at", "updated_at",
	}).AddRow(id, "ret-1", "w2.pdf", "application/pdf", 1024, "ret-1/w2.pdf",
		string(domain.DocTypeW2), status, nil, "", false, "", now, now)
}

func TestDocumentGetByIDReturnsNotFound(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, tax_return_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimProcessingSucceedsFromPending(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusProcessing), sqlmock.AnyArg(),
			string(domain.StatusPending), string(domain.StatusFailed)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClaimProcessing(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ClaimProcessing() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimProcessingConflictWhenAlreadyProcessing(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusProcessing), sqlmock.AnyArg(),
			string(domain.StatusPending), string(domain.StatusFailed)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, tax_return_id, file_name").
		WithArgs("doc-1").
		WillReturnRows(documentRows("doc-1", string(domain.StatusProcessing)))

	err := repo.ClaimProcessing(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimProcessingNotFoundWhenDocumentMissing(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), sqlmock.AnyArg(),
			string(domain.StatusPending), string(domain.StatusFailed)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, tax_return_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := repo.ClaimProcessing(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusFailed), "ocr timed out", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFailed(context.Background(), "missing", "ocr timed out")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkCompletedPersistsExtractedJSON(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusCompleted), string(domain.DocTypeW2),
			sqlmock.AnyArg(), "full text", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc := &domain.Document{
		ID:         "doc-1",
		Type:       domain.DocTypeW2,
		FullText:   "full text",
		IsVerified: true,
		Extracted:  &domain.ExtractedFields{EmployeeName: "Jane Doe"},
	}
	if err := repo.MarkCompleted(context.Background(), doc); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
