package domain

type ProcessingEventType string

const (
	EventConnected    ProcessingEventType = "connected"
	EventStatusUpdate ProcessingEventType = "status_update"
	EventCompleted    ProcessingEventType = "completed"
	EventError        ProcessingEventType = "error"
	EventTimeout      ProcessingEventType = "timeout"
)

// IsTerminal reports whether the channel ends after this event.
func (t ProcessingEventType) IsTerminal() bool {
	return t == EventCompleted || t == EventError || t == EventTimeout
}

type ProcessingStage struct {
	Name     string `json:"name"`
	Complete bool   `json:"complete"`
}

// ProcessingEvent is one frame on the document status channel.
type ProcessingEvent struct {
	Type             ProcessingEventType `json:"type"`
	DocumentID       string              `json:"document_id"`
	Status           ProcessingStatus    `json:"status,omitempty"`
	FileName         string              `json:"file_name,omitempty"`
	Progress         int                 `json:"progress,omitempty"`
	Message          string              `json:"message,omitempty"`
	HasFullText      bool                `json:"has_full_text,omitempty"`
	HasExtractedData bool                `json:"has_extracted_data,omitempty"`
	FullText         string              `json:"full_text,omitempty"`
	Extracted        *ExtractedFields    `json:"extracted_data,omitempty"`
	Stages           []ProcessingStage   `json:"processing_stages,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// ProcessingResult is the comprehensive payload the orchestrator returns once
// a document reaches COMPLETED.
type ProcessingResult struct {
	Document             *Document            `json:"document"`
	StateDetection       StateDetectionResult `json:"state_detection"`
	TaxCalculation       *TaxCalculation      `json:"tax_calculation,omitempty"`
	Mapping              *MappingResult       `json:"mapping,omitempty"`
	Duplicate            *DuplicateVerdict    `json:"duplicate_check,omitempty"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	SuggestedActions     []string             `json:"suggested_actions"`
}
