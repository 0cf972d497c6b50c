package client

import "encoding/json"

// DocumentState is the client-side view of where a document sits in its
// lifecycle. It is deliberately richer than the server status enum: the
// client distinguishes the upload leg and the duplicate warning, which the
// server folds into COMPLETED.
type DocumentState string

const (
	StatePending          DocumentState = "pending"
	StateUploading        DocumentState = "uploading"
	StateProcessing       DocumentState = "processing"
	StateExtraction       DocumentState = "extraction"
	StateCompleted        DocumentState = "completed"
	StateError            DocumentState = "error"
	StateDuplicateWarning DocumentState = "duplicate_warning"
)

// IsTerminal reports whether no further transitions happen without an
// explicit user action. The duplicate warning is terminal for monitoring but
// reopens through ResolveDuplicate.
func (s DocumentState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateError, StateDuplicateWarning:
		return true
	default:
		return false
	}
}

// Document mirrors the server's document resource.
type Document struct {
	ID          string          `json:"id"`
	TaxReturnID string          `json:"tax_return_id"`
	FileName    string          `json:"file_name"`
	FileType    string          `json:"file_type"`
	FileSize    int64           `json:"file_size"`
	Type        string          `json:"document_type"`
	Status      string          `json:"status"`
	FullText    string          `json:"full_text,omitempty"`
	Error       string          `json:"error_message,omitempty"`
	Extracted   json.RawMessage `json:"extracted_data,omitempty"`
}

// Event is one frame from the status channel, identical for SSE frames and
// poll-fallback synthesized updates.
type Event struct {
	Type             string          `json:"type"`
	DocumentID       string          `json:"document_id"`
	Status           string          `json:"status,omitempty"`
	FileName         string          `json:"file_name,omitempty"`
	Progress         int             `json:"progress,omitempty"`
	Message          string          `json:"message,omitempty"`
	HasFullText      bool            `json:"has_full_text,omitempty"`
	HasExtractedData bool            `json:"has_extracted_data,omitempty"`
	FullText         string          `json:"full_text,omitempty"`
	Extracted        json.RawMessage `json:"extracted_data,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// ProcessingResult is the server's comprehensive completion payload.
type ProcessingResult struct {
	Document             *Document       `json:"document"`
	StateDetection       StateDetection  `json:"state_detection"`
	TaxCalculation       json.RawMessage `json:"tax_calculation,omitempty"`
	Duplicate            *Duplicate      `json:"duplicate_check,omitempty"`
	RequiresManualReview bool            `json:"requires_manual_review"`
	SuggestedActions     []string        `json:"suggested_actions"`
}

type StateDetection struct {
	State      string  `json:"detected_state,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type Duplicate struct {
	IsDuplicate       bool     `json:"is_duplicate"`
	Confidence        float64  `json:"confidence"`
	MatchingDocuments []string `json:"matching_documents,omitempty"`
}

// Update is what the monitor emits to the application: the resolved state
// machine position plus the raw event that caused it.
type Update struct {
	State    DocumentState
	Progress int
	Message  string
	Event    *Event
	Result   *ProcessingResult
	Err      error
}

// APIError is a decoded server error response.
type APIError struct {
	StatusCode       int    `json:"-"`
	Message          string `json:"error"`
	Code             string `json:"code"`
	SupportReference string `json:"support_reference"`
}

func (e *APIError) Error() string {
	if e.SupportReference != "" {
		return e.Message + " (ref " + e.SupportReference + ")"
	}
	return e.Message
}
