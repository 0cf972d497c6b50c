package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// scriptedDocs serves a fixed sequence of statuses, then keeps returning the
// last one (or a configured error).
type scriptedDocs struct {
	mu       sync.Mutex
	doc      domain.Document
	statuses []domain.ProcessingStatus
	idx      int
	tailErr  error
}

func (s *scriptedDocs) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.doc.ID {
		return nil, domain.ErrNotFound
	}
	if s.idx >= len(s.statuses) {
		if s.tailErr != nil {
			return nil, s.tailErr
		}
		doc := s.doc
		doc.Status = s.statuses[len(s.statuses)-1]
		return &doc, nil
	}
	doc := s.doc
	doc.Status = s.statuses[s.idx]
	s.idx++
	return &doc, nil
}

func (s *scriptedDocs) Create(context.Context, *domain.Document) error        { return nil }
func (s *scriptedDocs) ClaimProcessing(context.Context, string) error         { return nil }
func (s *scriptedDocs) MarkCompleted(context.Context, *domain.Document) error { return nil }
func (s *scriptedDocs) MarkFailed(context.Context, string, string) error      { return nil }
func (s *scriptedDocs) Delete(context.Context, string) error                  { return nil }
func (s *scriptedDocs) UpdateType(context.Context, string, domain.DocumentType) error {
	return nil
}
func (s *scriptedDocs) ListByReturn(context.Context, string) ([]domain.Document, error) {
	return nil, nil
}

func fastMonitorConfig(maxPolls int) MonitorConfig {
	return MonitorConfig{
		PollInterval:        time.Millisecond,
		MaxPolls:            maxPolls,
		ErrorRetryInterval:  time.Millisecond,
		MaxConsecutiveReads: 2,
	}
}

func collectEvents(t *testing.T, events <-chan domain.ProcessingEvent) []domain.ProcessingEvent {
	t.Helper()
	var out []domain.ProcessingEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, open := <-events:
			if !open {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatalf("timed out collecting events, got %d so far", len(out))
		}
	}
}

func monitorFixtureDoc() domain.Document {
	return domain.Document{
		ID:          "doc-1",
		TaxReturnID: "ret-1",
		FileName:    "w2.pdf",
		UpdatedAt:   time.Now().UTC(),
	}
}

func TestWatchEmitsConnectedThenTerminal(t *testing.T) {
	docs := &scriptedDocs{
		doc:      monitorFixtureDoc(),
		statuses: []domain.ProcessingStatus{domain.StatusProcessing, domain.StatusCompleted},
	}
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, fastMonitorConfig(10), nil)

	events, err := uc.Watch(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) < 3 {
		t.Fatalf("events = %d, want at least connected + final update + completed", len(got))
	}
	if got[0].Type != domain.EventConnected {
		t.Fatalf("first event = %q, want connected", got[0].Type)
	}
	last := got[len(got)-1]
	if last.Type != domain.EventCompleted {
		t.Fatalf("last event = %q, want completed", last.Type)
	}
	final := got[len(got)-2]
	if final.Type != domain.EventStatusUpdate || final.Progress != 100 {
		t.Fatalf("final update = %+v, want 100%% status_update", final)
	}
	if len(final.Stages) == 0 {
		t.Fatalf("final update should carry the stage breakdown")
	}
}

func TestWatchSurfacesFailure(t *testing.T) {
	doc := monitorFixtureDoc()
	doc.Error = "ocr extraction: backend down"
	docs := &scriptedDocs{
		doc:      doc,
		statuses: []domain.ProcessingStatus{domain.StatusProcessing, domain.StatusFailed},
	}
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, fastMonitorConfig(10), nil)

	events, err := uc.Watch(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := collectEvents(t, events)
	last := got[len(got)-1]
	if last.Type != domain.EventError {
		t.Fatalf("last event = %q, want error", last.Type)
	}
	if last.Error != "ocr extraction: backend down" {
		t.Fatalf("error message = %q", last.Error)
	}
}

func TestWatchTimesOutAfterPollBudget(t *testing.T) {
	docs := &scriptedDocs{
		doc:      monitorFixtureDoc(),
		statuses: []domain.ProcessingStatus{domain.StatusProcessing},
	}
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, fastMonitorConfig(3), nil)

	events, err := uc.Watch(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := collectEvents(t, events)
	last := got[len(got)-1]
	if last.Type != domain.EventTimeout {
		t.Fatalf("last event = %q, want timeout", last.Type)
	}
}

func TestWatchClosesAfterRepeatedReadFailures(t *testing.T) {
	docs := &scriptedDocs{
		doc:      monitorFixtureDoc(),
		statuses: []domain.ProcessingStatus{domain.StatusProcessing},
		tailErr:  errors.New("connection refused"),
	}
	// First status is consumed by the authorization fetch, so every poll hits
	// the tail error.
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, fastMonitorConfig(10), nil)

	events, err := uc.Watch(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	got := collectEvents(t, events)
	last := got[len(got)-1]
	if last.Type != domain.EventError {
		t.Fatalf("last event = %q, want error", last.Type)
	}
}

func TestWatchFailsClosedForForeignUser(t *testing.T) {
	docs := &scriptedDocs{
		doc:      monitorFixtureDoc(),
		statuses: []domain.ProcessingStatus{domain.StatusProcessing},
	}
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, fastMonitorConfig(10), nil)

	if _, err := uc.Watch(context.Background(), "intruder", "doc-1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for foreign user, got %v", err)
	}
}

func TestWatchCancelClosesChannel(t *testing.T) {
	docs := &scriptedDocs{
		doc:      monitorFixtureDoc(),
		statuses: []domain.ProcessingStatus{domain.StatusProcessing},
	}
	returns := newMemReturns(&domain.TaxReturn{ID: "ret-1", UserID: "user-1"})
	uc := NewStatusMonitorUseCase(docs, returns, MonitorConfig{
		PollInterval: 50 * time.Millisecond,
		MaxPolls:     1000,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := uc.Watch(ctx, "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	select {
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not close after cancel")
	case _, open := <-events:
		if !open {
			return
		}
		// Drain whatever was buffered before the cancel landed.
		for range events {
		}
	}
}
