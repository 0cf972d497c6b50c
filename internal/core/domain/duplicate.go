package domain

// DuplicateVerdict is what the external duplicate checker returns. A positive
// verdict is advisory: it flags manual review but never blocks processing.
type DuplicateVerdict struct {
	IsDuplicate       bool              `json:"is_duplicate"`
	Confidence        float64           `json:"confidence"`
	MatchingDocuments []string          `json:"matching_documents,omitempty"`
	MatchCriteria     map[string]string `json:"match_criteria,omitempty"`
}

// DuplicateResolution is the user's answer to a duplicate warning.
type DuplicateResolution string

const (
	ResolutionProceed DuplicateResolution = "proceed"
	ResolutionCancel  DuplicateResolution = "cancel"
	ResolutionReplace DuplicateResolution = "replace"
)

func (r DuplicateResolution) Valid() bool {
	switch r {
	case ResolutionProceed, ResolutionCancel, ResolutionReplace:
		return true
	default:
		return false
	}
}
