package ports

import (
	"context"
	"io"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// UploadRequest carries one income document into the system.
type UploadRequest struct {
	UserID       string
	TaxReturnID  string
	FileName     string
	FileType     string
	FileSize     int64
	DeclaredType domain.DocumentType
	Body         io.Reader
}

// DocumentUploader is the inbound contract for document ingestion.
type DocumentUploader interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentProcessor runs the per-document pipeline. Idempotent for COMPLETED
// documents, conflict for PROCESSING ones.
type DocumentProcessor interface {
	Process(ctx context.Context, userID, documentID string) (*domain.ProcessingResult, error)
}

// StatusMonitor opens a live status channel for a document. The returned
// channel always terminates: terminal event, timeout event, or ctx cancel.
type StatusMonitor interface {
	Watch(ctx context.Context, userID, documentID string) (<-chan domain.ProcessingEvent, error)
}

// IncomeOverview is the valid-income read model for a return.
type IncomeOverview struct {
	Entries       []domain.IncomeEntry `json:"entries"`
	OrphanCount   int64                `json:"orphan_count"`
	TotalIncome   string               `json:"total_income"`
	TotalWithheld string               `json:"total_withholdings"`
}

// ReturnReader exposes current documents and valid income for a return.
type ReturnReader interface {
	GetReturn(ctx context.Context, userID, taxReturnID string) (*domain.TaxReturn, error)
	ListDocuments(ctx context.Context, userID, taxReturnID string) ([]domain.Document, error)
	ListValidIncome(ctx context.Context, userID, taxReturnID string) (*IncomeOverview, error)
}

// ReturnMaintenance covers destructive and corrective operations.
type ReturnMaintenance interface {
	DeleteDocument(ctx context.Context, userID, documentID string) error
	CleanupAndRecalculate(ctx context.Context, userID, taxReturnID string) (*CleanupReport, error)
	ResolveDuplicate(ctx context.Context, userID, documentID string, action domain.DuplicateResolution) (*domain.ProcessingResult, error)
}

// CleanupReport summarizes an explicit orphan cleanup + recalculation pass.
type CleanupReport struct {
	OrphansRemoved int64                  `json:"orphans_removed"`
	Return         *domain.TaxReturn      `json:"tax_return"`
	Calculation    *domain.TaxCalculation `json:"calculation"`
}
