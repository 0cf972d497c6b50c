package ports

import (
	"context"
	"io"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByReturn(ctx context.Context, taxReturnID string) ([]domain.Document, error)
	// ClaimProcessing atomically moves PENDING to PROCESSING. It returns
	// ErrConflict when the document is already PROCESSING and ErrNotFound
	// when it does not exist; re-claiming a terminal document is a conflict
	// too, callers short-circuit COMPLETED before claiming.
	ClaimProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, doc *domain.Document) error
	MarkFailed(ctx context.Context, id, errMessage string) error
	UpdateType(ctx context.Context, id string, docType domain.DocumentType) error
	Delete(ctx context.Context, id string) error
}

// IncomeEntryRepository persists income entries tied to documents.
type IncomeEntryRepository interface {
	Create(ctx context.Context, entry *domain.IncomeEntry) error
	DeleteByDocument(ctx context.Context, documentID string) error
	// DeleteOrphans removes entries whose document reference is null or
	// dangling and reports how many were purged.
	DeleteOrphans(ctx context.Context, taxReturnID string) (int64, error)
	// ListValid returns only entries whose document still exists.
	ListValid(ctx context.Context, taxReturnID string) ([]domain.IncomeEntry, error)
	CountOrphans(ctx context.Context, taxReturnID string) (int64, error)
}

// TaxReturnRepository persists returns and their derived aggregates.
type TaxReturnRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TaxReturn, error)
	// GetOwned fails closed with ErrNotFound on ownership mismatch.
	GetOwned(ctx context.Context, id, userID string) (*domain.TaxReturn, error)
	// LockForUpdate reads the return row with a row lock; only meaningful
	// inside a unit of work.
	LockForUpdate(ctx context.Context, id string) (*domain.TaxReturn, error)
	SaveAggregates(ctx context.Context, ret *domain.TaxReturn) error
	SaveStateDetection(ctx context.Context, id string, result domain.StateDetectionResult) error
	MergePersonalInfo(ctx context.Context, id string, info domain.PersonalInfo) error
	ListDependents(ctx context.Context, taxReturnID string) ([]domain.Dependent, error)
}

// Stores bundles the repositories bound to one transaction.
type Stores struct {
	Documents DocumentRepository
	Income    IncomeEntryRepository
	Returns   TaxReturnRepository
}

// UnitOfWork runs fn inside a single transaction; fn's writes commit or roll
// back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-uploaded events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// ExtractionResult is what the external OCR capability returns.
type ExtractionResult struct {
	Fields        *domain.ExtractedFields
	CorrectedType domain.DocumentType
	FullText      string
}

// FieldExtractor is the external OCR/extraction capability.
type FieldExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (*ExtractionResult, error)
}

// StateClassifierRequest carries the material for tier-3 state detection.
type StateClassifierRequest struct {
	FullText  string
	Addresses []string
}

// StateClassifier is the external text classifier used when neither direct
// fields nor address parsing found a state.
type StateClassifier interface {
	ClassifyState(ctx context.Context, req StateClassifierRequest) (domain.StateDetectionResult, error)
}

// DuplicateChecker is the external duplicate-detection capability.
type DuplicateChecker interface {
	Check(ctx context.Context, doc *domain.Document) (domain.DuplicateVerdict, error)
}

// FullTextSniffer extracts raw text from the stored file locally, used as a
// fallback when the OCR response carries no full text.
type FullTextSniffer interface {
	Sniff(ctx context.Context, doc *domain.Document) (string, error)
}

// ReturnExporter renders a downloadable report for a return.
type ReturnExporter interface {
	Export(ret *domain.TaxReturn, entries []domain.IncomeEntry) ([]byte, error)
}
