package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollConfig bounds the fallback loop. The defaults cover eight minutes of
// processing at a 2s cadence.
type PollConfig struct {
	Interval             time.Duration
	MaxAttempts          int
	MaxConsecutiveErrors int
	ProgressCap          int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:             2 * time.Second,
		MaxAttempts:          240,
		MaxConsecutiveErrors: 12,
		ProgressCap:          95,
	}
}

func (c PollConfig) normalize() PollConfig {
	def := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if c.ProgressCap <= 0 {
		c.ProgressCap = def.ProgressCap
	}
	return c
}

// pollStatus is the degraded monitoring mode: read the document resource on a
// fixed cadence until a terminal status or the attempt budget runs out.
// Consecutive read failures are tolerated up to a cap that resets on success.
func (c *Client) pollStatus(ctx context.Context, documentID string, machine *StateMachine, updates chan<- Update) {
	consecutiveErrors := 0

	for attempt := 1; attempt <= c.poll.MaxAttempts; attempt++ {
		doc, err := c.GetDocument(ctx, documentID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			if consecutiveErrors >= c.poll.MaxConsecutiveErrors {
				machine.Advance(StateError)
				emit(ctx, updates, Update{
					State: StateError,
					Err:   fmt.Errorf("status polling abandoned after repeated connection issues: %w", err),
				})
				return
			}
			if !sleepCtx(ctx, c.poll.Interval) {
				return
			}
			continue
		}
		consecutiveErrors = 0

		switch doc.Status {
		case "COMPLETED":
			var result *ProcessingResult
			if r, perr := c.Process(ctx, documentID); perr == nil {
				result = r
			}
			next := StateCompleted
			if result != nil && result.RequiresManualReview {
				next = StateDuplicateWarning
			}
			machine.Advance(next)
			emit(ctx, updates, Update{
				State:    machine.Current(),
				Progress: 100,
				Result:   result,
			})
			return
		case "FAILED":
			machine.Advance(StateError)
			msg := doc.Error
			if msg == "" {
				msg = "document processing failed"
			}
			emit(ctx, updates, Update{State: StateError, Err: errors.New(msg)})
			return
		default:
			emit(ctx, updates, Update{
				State:    machine.Current(),
				Progress: c.syntheticPollProgress(attempt),
				Message:  "Processing continues; live stream unavailable, polling status",
			})
		}

		if !sleepCtx(ctx, c.poll.Interval) {
			return
		}
	}

	machine.Advance(StateError)
	emit(ctx, updates, Update{
		State: StateError,
		Err:   errors.New("processing did not finish within the polling window"),
	})
}

// syntheticPollProgress continues the bar from the midpoint: the stream got
// us some of the way, the remaining half advances with poll attempts and
// never claims completion.
func (c *Client) syntheticPollProgress(attempt int) int {
	pct := 50 + attempt*45/c.poll.MaxAttempts
	if pct > c.poll.ProgressCap {
		return c.poll.ProgressCap
	}
	return pct
}
