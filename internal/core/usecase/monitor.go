package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

// MonitorConfig bounds the status poll loop. The defaults give the channel a
// hard ten-minute lifetime: 300 polls at 2s.
type MonitorConfig struct {
	PollInterval        time.Duration
	MaxPolls            int
	ErrorRetryInterval  time.Duration
	MaxConsecutiveReads int
	AssumedDuration     time.Duration
	ProgressCap         int
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:        2 * time.Second,
		MaxPolls:            300,
		ErrorRetryInterval:  5 * time.Second,
		MaxConsecutiveReads: 10,
		AssumedDuration:     5 * time.Minute,
		ProgressCap:         95,
	}
}

func (c MonitorConfig) normalize() MonitorConfig {
	def := DefaultMonitorConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = def.MaxPolls
	}
	if c.ErrorRetryInterval <= 0 {
		c.ErrorRetryInterval = def.ErrorRetryInterval
	}
	if c.MaxConsecutiveReads <= 0 {
		c.MaxConsecutiveReads = def.MaxConsecutiveReads
	}
	if c.AssumedDuration <= 0 {
		c.AssumedDuration = def.AssumedDuration
	}
	if c.ProgressCap <= 0 {
		c.ProgressCap = def.ProgressCap
	}
	return c
}

// StatusMonitorUseCase polls persisted document state and emits typed
// progress events until a terminal state, the poll budget, or client cancel.
// The channel is guaranteed to terminate in every case.
type StatusMonitorUseCase struct {
	docs    ports.DocumentRepository
	returns ports.TaxReturnRepository
	cfg     MonitorConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewStatusMonitorUseCase(
	docs ports.DocumentRepository,
	returns ports.TaxReturnRepository,
	cfg MonitorConfig,
	logger *slog.Logger,
) *StatusMonitorUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusMonitorUseCase{
		docs:    docs,
		returns: returns,
		cfg:     cfg.normalize(),
		logger:  logger,
		now:     time.Now,
	}
}

// Watch opens the status channel. The initial fetch doubles as the
// authorization check; the goroutine owns the channel and always closes it.
func (uc *StatusMonitorUseCase) Watch(ctx context.Context, userID, documentID string) (<-chan domain.ProcessingEvent, error) {
	doc, err := uc.fetchAuthorized(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.ProcessingEvent, 8)
	go uc.run(ctx, userID, doc, events)
	return events, nil
}

func (uc *StatusMonitorUseCase) fetchAuthorized(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	if userID != "" {
		if _, err := uc.returns.GetOwned(ctx, doc.TaxReturnID, userID); err != nil {
			return nil, fmt.Errorf("verify return ownership: %w", err)
		}
	}
	return doc, nil
}

func (uc *StatusMonitorUseCase) run(ctx context.Context, userID string, initial *domain.Document, events chan<- domain.ProcessingEvent) {
	defer close(events)

	uc.emit(ctx, events, domain.ProcessingEvent{
		Type:       domain.EventConnected,
		DocumentID: initial.ID,
		Status:     initial.Status,
		FileName:   initial.FileName,
	})

	consecutiveErrors := 0
	for poll := 0; poll < uc.cfg.MaxPolls; poll++ {
		doc, err := uc.docs.GetByID(ctx, initial.ID)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors > uc.cfg.MaxConsecutiveReads {
				uc.emit(ctx, events, domain.ProcessingEvent{
					Type:       domain.EventError,
					DocumentID: initial.ID,
					Error:      "status channel closed after repeated read failures",
				})
				return
			}
			if !uc.sleep(ctx, uc.cfg.ErrorRetryInterval) {
				return
			}
			continue
		}
		consecutiveErrors = 0

		switch doc.Status {
		case domain.StatusCompleted:
			uc.emit(ctx, events, uc.finalUpdate(doc))
			uc.emit(ctx, events, domain.ProcessingEvent{
				Type:       domain.EventCompleted,
				DocumentID: doc.ID,
				Status:     domain.StatusCompleted,
			})
			return
		case domain.StatusFailed:
			uc.emit(ctx, events, domain.ProcessingEvent{
				Type:       domain.EventError,
				DocumentID: doc.ID,
				Status:     domain.StatusFailed,
				Error:      doc.Error,
			})
			return
		default:
			uc.emit(ctx, events, uc.progressUpdate(doc))
		}

		if !uc.sleep(ctx, uc.cfg.PollInterval) {
			return
		}
	}

	uc.emit(ctx, events, domain.ProcessingEvent{
		Type:       domain.EventTimeout,
		DocumentID: initial.ID,
		Error:      "processing did not finish within the monitoring window",
	})
}

func (uc *StatusMonitorUseCase) progressUpdate(doc *domain.Document) domain.ProcessingEvent {
	event := domain.ProcessingEvent{
		Type:             domain.EventStatusUpdate,
		DocumentID:       doc.ID,
		Status:           doc.Status,
		FileName:         doc.FileName,
		HasFullText:      doc.FullText != "",
		HasExtractedData: doc.Extracted != nil,
	}
	if doc.Status == domain.StatusProcessing {
		elapsed := uc.now().Sub(doc.UpdatedAt)
		event.Progress = uc.syntheticProgress(elapsed)
		event.Message = phaseMessage(elapsed)
	}
	return event
}

// syntheticProgress derives a percentage from wall-clock time against an
// assumed fixed processing duration, capped below 100 so the bar never lies
// about completion.
func (uc *StatusMonitorUseCase) syntheticProgress(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	pct := int(float64(elapsed) / float64(uc.cfg.AssumedDuration) * 100)
	if pct > uc.cfg.ProgressCap {
		return uc.cfg.ProgressCap
	}
	return pct
}

func phaseMessage(elapsed time.Duration) string {
	switch {
	case elapsed < time.Minute:
		return "Analyzing document layout"
	case elapsed < 3*time.Minute:
		return "Extracting form fields"
	case elapsed < 5*time.Minute:
		return "Validating extracted data"
	default:
		return "Still working; large documents can take a few extra minutes"
	}
}

func (uc *StatusMonitorUseCase) finalUpdate(doc *domain.Document) domain.ProcessingEvent {
	return domain.ProcessingEvent{
		Type:             domain.EventStatusUpdate,
		DocumentID:       doc.ID,
		Status:           domain.StatusCompleted,
		FileName:         doc.FileName,
		Progress:         100,
		HasFullText:      doc.FullText != "",
		HasExtractedData: doc.Extracted != nil,
		FullText:         doc.FullText,
		Extracted:        doc.Extracted,
		Stages: []domain.ProcessingStage{
			{Name: "upload", Complete: true},
			{Name: "ocr_extraction", Complete: true},
			{Name: "state_detection", Complete: true},
			{Name: "duplicate_check", Complete: true},
			{Name: "income_mapping", Complete: true},
			{Name: "tax_recalculation", Complete: true},
		},
	}
}

// emit drops nothing silently: it blocks until the consumer takes the event
// or the client goes away.
func (uc *StatusMonitorUseCase) emit(ctx context.Context, events chan<- domain.ProcessingEvent, event domain.ProcessingEvent) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}

func (uc *StatusMonitorUseCase) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
