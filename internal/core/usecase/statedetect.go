package usecase

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

const (
	directFieldConfidence  = 0.95
	addressParseConfidence = 0.85
)

// StateDetector resolves the filer's state in three tiers: direct state
// fields, address parsing, then the external classifier. Detection never
// fails the surrounding pipeline; three misses return the UNKNOWN result.
type StateDetector struct {
	classifier ports.StateClassifier
	logger     *slog.Logger
}

func NewStateDetector(classifier ports.StateClassifier, logger *slog.Logger) *StateDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateDetector{classifier: classifier, logger: logger}
}

type stateCandidate struct {
	value  string
	source domain.StateSource
}

// Address patterns, tried in order per address string:
// "City, ST 12345", "City ST 12345", "City, Statename 12345".
var (
	reCityCommaState = regexp.MustCompile(`,\s*([A-Za-z]{2})\s+\d{5}(?:-\d{4})?`)
	reCityState      = regexp.MustCompile(`\b([A-Za-z]{2})\s+\d{5}(?:-\d{4})?`)
	reCityStateName  = regexp.MustCompile(`,\s*([A-Za-z][A-Za-z ]*[A-Za-z])\s+\d{5}(?:-\d{4})?`)
	reTrailingCode   = regexp.MustCompile(`\b([A-Za-z]{2})\s*$`)
)

func (d *StateDetector) Detect(ctx context.Context, docType domain.DocumentType, fields *domain.ExtractedFields) domain.StateDetectionResult {
	if fields == nil {
		return domain.NoState()
	}

	if result, ok := d.fromDirectFields(fields); ok {
		return result
	}
	if result, ok := d.fromAddresses(fields); ok {
		return result
	}
	if result, ok := d.fromClassifier(ctx, fields); ok {
		return result
	}
	return domain.NoState()
}

func (d *StateDetector) fromDirectFields(fields *domain.ExtractedFields) (domain.StateDetectionResult, bool) {
	candidates := []stateCandidate{
		{fields.EmployeeState, domain.SourceAddress},
		{fields.EmployerState, domain.SourceEmployer},
		{fields.RecipientState, domain.SourceEmployer},
		{fields.PayerState, domain.SourceEmployer},
	}
	for _, c := range candidates {
		code := domain.NormalizeStateCode(c.value)
		if code == "" {
			continue
		}
		return domain.StateDetectionResult{
			State:      code,
			Confidence: directFieldConfidence,
			Source:     c.source,
		}, true
	}
	return domain.StateDetectionResult{}, false
}

func (d *StateDetector) fromAddresses(fields *domain.ExtractedFields) (domain.StateDetectionResult, bool) {
	candidates := []stateCandidate{
		{fields.EmployeeAddress, domain.SourceAddress},
		{fields.RecipientAddress, domain.SourceAddress},
		{fields.EmployerAddress, domain.SourceEmployer},
		{fields.PayerAddress, domain.SourceEmployer},
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		code := parseStateFromAddress(c.value)
		if code == "" {
			continue
		}
		return domain.StateDetectionResult{
			State:      code,
			Confidence: addressParseConfidence,
			Source:     c.source,
		}, true
	}
	return domain.StateDetectionResult{}, false
}

// parseStateFromAddress applies the ordered pattern list; the first pattern
// resolving to a known state/DC code wins.
func parseStateFromAddress(address string) string {
	if m := reCityCommaState.FindStringSubmatch(address); m != nil {
		if code := domain.NormalizeStateCode(m[1]); code != "" {
			return code
		}
	}
	if m := reCityState.FindStringSubmatch(address); m != nil {
		if code := domain.NormalizeStateCode(m[1]); code != "" {
			return code
		}
	}
	if m := reCityStateName.FindStringSubmatch(address); m != nil {
		if code := domain.StateCodeFromName(m[1]); code != "" {
			return code
		}
	}
	if m := reTrailingCode.FindStringSubmatch(address); m != nil {
		if code := domain.NormalizeStateCode(m[1]); code != "" {
			return code
		}
	}
	return trailingStateName(address)
}

func trailingStateName(address string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(address), ".")
	for _, sep := range []string{",", " "} {
		if idx := strings.LastIndex(trimmed, sep); idx >= 0 {
			if code := domain.StateCodeFromName(trimmed[idx+1:]); code != "" {
				return code
			}
		}
	}
	return domain.StateCodeFromName(trimmed)
}

func (d *StateDetector) fromClassifier(ctx context.Context, fields *domain.ExtractedFields) (domain.StateDetectionResult, bool) {
	if d.classifier == nil {
		return domain.StateDetectionResult{}, false
	}
	if strings.TrimSpace(fields.FullText) == "" && len(fields.Addresses()) == 0 {
		return domain.StateDetectionResult{}, false
	}

	result, err := d.classifier.ClassifyState(ctx, ports.StateClassifierRequest{
		FullText:  fields.FullText,
		Addresses: fields.Addresses(),
	})
	if err != nil {
		// Classifier failures never abort the document pipeline.
		d.logger.Warn("state_classifier_failed", "error", err)
		return domain.StateDetectionResult{}, false
	}

	code := domain.NormalizeStateCode(result.State)
	if code == "" {
		return domain.StateDetectionResult{}, false
	}
	return domain.StateDetectionResult{
		State:      code,
		Confidence: clamp01(result.Confidence),
		Source:     domain.SourceDocumentType,
		Reasoning:  result.Reasoning,
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
