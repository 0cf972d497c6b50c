package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

type fakeClassifier struct {
	result  domain.StateDetectionResult
	err     error
	calls   int
	lastReq ports.StateClassifierRequest
}

func (f *fakeClassifier) ClassifyState(_ context.Context, req ports.StateClassifierRequest) (domain.StateDetectionResult, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

func TestDetectDirectFieldWins(t *testing.T) {
	classifier := &fakeClassifier{}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
		EmployeeState:   "ca",
		EmployeeAddress: "456 Oak Ave, Albany, NY 12207",
		FullText:        "some text",
	})

	if result.State != "CA" {
		t.Fatalf("state = %q, want CA", result.State)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", result.Confidence)
	}
	if result.Source != domain.SourceAddress {
		t.Fatalf("source = %q, want ADDRESS", result.Source)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier should not run when a direct field resolves")
	}
}

func TestDetectAddressParsing(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"comma state zip", "123 Main St, Springfield, IL 62704", "IL"},
		{"no comma before state", "123 Main St Springfield IL 62704", "IL"},
		{"zip plus four", "9 Elm Rd, Portland, OR 97201-1234", "OR"},
		{"full state name with zip", "77 Pine St, Austin, Texas 78701", "TX"},
		{"trailing code only", "88 Lake Dr, Denver, CO", "CO"},
		{"trailing state name", "12 Bay Rd, Boston, Massachusetts", "MA"},
	}

	detector := NewStateDetector(nil, nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
				EmployeeAddress: tc.address,
			})
			if result.State != tc.want {
				t.Fatalf("parsed %q from %q, want %s", result.State, tc.address, tc.want)
			}
			if result.Confidence != 0.85 {
				t.Fatalf("confidence = %v, want 0.85", result.Confidence)
			}
		})
	}
}

func TestDetectAddressSkipsInvalidTwoLetterWords(t *testing.T) {
	detector := NewStateDetector(nil, nil)

	// "ZZ" matches the two-letter pattern but is not a state.
	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
		EmployeeAddress: "1 Nowhere Blvd, Faketown, ZZ 00000",
	})
	if result.Found() {
		t.Fatalf("expected no state from invalid code, got %q", result.State)
	}
}

func TestDetectFallsThroughToClassifier(t *testing.T) {
	classifier := &fakeClassifier{
		result: domain.StateDetectionResult{State: "ny", Confidence: 0.7, Reasoning: "payer letterhead"},
	}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocType1099INT, &domain.ExtractedFields{
		FullText: "Interest statement issued by Empire Savings, New York branch",
	})

	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
	if result.State != "NY" {
		t.Fatalf("state = %q, want NY", result.State)
	}
	if result.Source != domain.SourceDocumentType {
		t.Fatalf("source = %q, want DOCUMENT_TYPE", result.Source)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", result.Confidence)
	}
}

func TestDetectClassifierFailureReturnsUnknown(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("model unavailable")}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
		FullText: "illegible scan",
	})

	if result.Found() {
		t.Fatalf("expected UNKNOWN result, got %q", result.State)
	}
	if result.Source != domain.SourceUnknown {
		t.Fatalf("source = %q, want UNKNOWN", result.Source)
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", result.Confidence)
	}
}

func TestDetectClassifierInvalidStateRejected(t *testing.T) {
	classifier := &fakeClassifier{
		result: domain.StateDetectionResult{State: "EUROPE", Confidence: 0.9},
	}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
		FullText: "text",
	})
	if result.Found() {
		t.Fatalf("expected invalid classifier answer to be dropped, got %q", result.State)
	}
}

func TestDetectNothingToClassify(t *testing.T) {
	classifier := &fakeClassifier{}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{})
	if result.Found() {
		t.Fatalf("expected UNKNOWN, got %q", result.State)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier should not run without text or addresses")
	}
}

func TestDetectClampsClassifierConfidence(t *testing.T) {
	classifier := &fakeClassifier{
		result: domain.StateDetectionResult{State: "WA", Confidence: 1.7},
	}
	detector := NewStateDetector(classifier, nil)

	result := detector.Detect(context.Background(), domain.DocTypeW2, &domain.ExtractedFields{
		FullText: "text",
	})
	if result.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", result.Confidence)
	}
}
