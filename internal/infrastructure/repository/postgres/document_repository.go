package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

type DocumentRepository struct {
	db querier
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, tax_return_id, file_name, file_type, file_size, storage_path, document_type, status, extracted_data, full_text, is_verified, error_message, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.TaxReturnID, doc.FileName, doc.FileType, doc.FileSize, doc.StoragePath,
		string(doc.Type), string(doc.Status), nil, doc.FullText, doc.IsVerified, doc.Error,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)
	return scanDocument(row)
}

func (r *DocumentRepository) ListByReturn(ctx context.Context, taxReturnID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE tax_return_id = $1
ORDER BY created_at
`, taxReturnID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// ClaimProcessing is the atomic claim of a document for processing. PENDING
// and FAILED documents are claimable: a failed run rolled back everything it
// wrote, so re-processing starts from a clean slate. COMPLETED stays terminal.
// Zero rows affected means the document is missing or the transition is not
// allowed; the follow-up read distinguishes the two.
func (r *DocumentRepository) ClaimProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = '', updated_at = $3
WHERE id = $1 AND status IN ($4, $5)
`, id, string(domain.StatusProcessing), time.Now().UTC(), string(domain.StatusPending), string(domain.StatusFailed))
	if err != nil {
		return fmt.Errorf("claim document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim document rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrConflict, "claim document",
		fmt.Errorf("document %s is %s", id, doc.Status))
}

func (r *DocumentRepository) MarkCompleted(ctx context.Context, doc *domain.Document) error {
	var extracted []byte
	if doc.Extracted != nil {
		var err error
		extracted, err = json.Marshal(doc.Extracted)
		if err != nil {
			return fmt.Errorf("marshal extracted data: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, document_type = $3, extracted_data = $4, full_text = $5, is_verified = $6, error_message = '', updated_at = $7
WHERE id = $1
`, doc.ID, string(domain.StatusCompleted), string(doc.Type), extracted, doc.FullText, doc.IsVerified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document completed: %w", err)
	}
	return requireRow(res, "mark document completed", doc.ID)
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.StatusFailed), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	return requireRow(res, "mark document failed", id)
}

func (r *DocumentRepository) UpdateType(ctx context.Context, id string, docType domain.DocumentType) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET document_type = $2, updated_at = $3
WHERE id = $1
`, id, string(docType), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document type: %w", err)
	}
	return requireRow(res, "update document type", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res, "delete document", id)
}

func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("document %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "fetch document", err)
		}
		return nil, err
	}
	return doc, nil
}

func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	return scanDocumentFrom(rows)
}

func scanDocumentFrom(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var extracted []byte

	err := row.Scan(
		&doc.ID, &doc.TaxReturnID, &doc.FileName, &doc.FileType, &doc.FileSize, &doc.StoragePath,
		&docType, &status, &extracted, &doc.FullText, &doc.IsVerified, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.ProcessingStatus(status)
	if len(extracted) > 0 {
		var fields domain.ExtractedFields
		if err := json.Unmarshal(extracted, &fields); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data: %w", err)
		}
		doc.Extracted = &fields
	}
	return &doc, nil
}
