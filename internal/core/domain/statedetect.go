package domain

import "strings"

type StateSource string

const (
	SourceAddress      StateSource = "ADDRESS"
	SourceEmployer     StateSource = "EMPLOYER"
	SourceDocumentType StateSource = "DOCUMENT_TYPE"
	SourceManual       StateSource = "MANUAL"
	SourceUnknown      StateSource = "UNKNOWN"
)

// StateDetectionResult is produced fresh per document and never persisted on
// its own; the owning return keeps a last-write-wins snapshot of the most
// recent successful detection.
type StateDetectionResult struct {
	State      string      `json:"detected_state,omitempty"`
	Confidence float64     `json:"confidence"`
	Source     StateSource `json:"source"`
	Reasoning  string      `json:"reasoning,omitempty"`
}

// Found reports whether the detection actually resolved a state.
func (r StateDetectionResult) Found() bool {
	return r.State != ""
}

// NoState is the three-tiers-failed result.
func NoState() StateDetectionResult {
	return StateDetectionResult{Confidence: 0, Source: SourceUnknown}
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

var stateCodesByName = func() map[string]string {
	out := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		out[strings.ToLower(name)] = code
	}
	return out
}()

// IsValidStateCode accepts the 50 states plus DC.
func IsValidStateCode(code string) bool {
	_, ok := stateNames[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// NormalizeStateCode trims and upper-cases, returning "" for invalid codes.
func NormalizeStateCode(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := stateNames[normalized]; ok {
		return normalized
	}
	return ""
}

// StateCodeFromName resolves a full state name, case-insensitively.
func StateCodeFromName(name string) string {
	return stateCodesByName[strings.ToLower(strings.TrimSpace(name))]
}

// StateName returns the full name for a valid code, or "".
func StateName(code string) string {
	return stateNames[strings.ToUpper(strings.TrimSpace(code))]
}
