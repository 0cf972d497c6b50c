package domain

import (
	"strings"
	"time"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// IsTerminal reports whether the status can never change again.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type DocumentType string

const (
	DocTypeW2               DocumentType = "W2"
	DocType1099INT          DocumentType = "FORM_1099_INT"
	DocType1099DIV          DocumentType = "FORM_1099_DIV"
	DocType1099MISC         DocumentType = "FORM_1099_MISC"
	DocType1099NEC          DocumentType = "FORM_1099_NEC"
	DocType1099R            DocumentType = "FORM_1099_R"
	DocType1099G            DocumentType = "FORM_1099_G"
	DocType1099Generic      DocumentType = "FORM_1099_GENERIC"
	DocTypeOtherTaxDocument DocumentType = "OTHER_TAX_DOCUMENT"
)

// ParseDocumentType maps a declared or OCR-corrected type string onto the
// enumeration, defaulting to OTHER_TAX_DOCUMENT for anything unrecognized.
func ParseDocumentType(raw string) DocumentType {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "W2", "W_2", "FORM_W2":
		return DocTypeW2
	case "FORM_1099_INT", "1099_INT":
		return DocType1099INT
	case "FORM_1099_DIV", "1099_DIV":
		return DocType1099DIV
	case "FORM_1099_MISC", "1099_MISC":
		return DocType1099MISC
	case "FORM_1099_NEC", "1099_NEC":
		return DocType1099NEC
	case "FORM_1099_R", "1099_R":
		return DocType1099R
	case "FORM_1099_G", "1099_G":
		return DocType1099G
	case "FORM_1099_GENERIC", "1099":
		return DocType1099Generic
	default:
		return DocTypeOtherTaxDocument
	}
}

type Document struct {
	ID          string           `json:"id"`
	TaxReturnID string           `json:"tax_return_id"`
	FileName    string           `json:"file_name"`
	FileType    string           `json:"file_type"`
	FileSize    int64            `json:"file_size"`
	StoragePath string           `json:"storage_path"`
	Type        DocumentType     `json:"document_type"`
	Status      ProcessingStatus `json:"processing_status"`
	Extracted   *ExtractedFields `json:"extracted_data,omitempty"`
	FullText    string           `json:"full_text,omitempty"`
	IsVerified  bool             `json:"is_verified"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
