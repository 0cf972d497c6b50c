package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Monitor opens the live status channel for a document. It prefers the SSE
// stream; any transport loss mid-stream degrades to polling the document
// resource instead of surfacing an error to the application. The returned
// channel always terminates.
func (c *Client) Monitor(ctx context.Context, documentID string) (<-chan Update, error) {
	updates := make(chan Update, 8)
	machine := NewStateMachine()
	machine.Advance(StateProcessing)

	go func() {
		defer close(updates)

		err := c.streamEvents(ctx, documentID, machine, updates)
		if err == nil || ctx.Err() != nil {
			return
		}
		if !shouldFallBack(err) {
			emit(ctx, updates, Update{State: StateError, Err: err})
			return
		}
		// The stream died but processing continues server-side.
		c.pollStatus(ctx, documentID, machine, updates)
	}()

	return updates, nil
}

// streamEvents consumes the SSE endpoint until a terminal event. A nil return
// means the monitor is done; an error means the stream broke and the caller
// decides whether to fall back.
func (c *Client) streamEvents(ctx context.Context, documentID string, machine *StateMachine, updates chan<- Update) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/documents/"+documentID+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return fmt.Errorf("unexpected stream content type %q", resp.Header.Get("Content-Type"))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sawTerminal := false

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			return fmt.Errorf("parse stream frame: %w", err)
		}
		if event.Type == "connected" {
			continue
		}

		c.dispatch(ctx, &event, machine, updates)
		if terminalEventType(event.Type) {
			sawTerminal = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	if !sawTerminal {
		return errors.New("event stream ended before a terminal event")
	}
	return nil
}

// dispatch resolves one event into a state machine move and emits the update.
func (c *Client) dispatch(ctx context.Context, event *Event, machine *StateMachine, updates chan<- Update) {
	var result *ProcessingResult
	if event.Type == "completed" {
		// The idempotent process call returns the stored comprehensive
		// payload without recomputation.
		if r, err := c.Process(ctx, event.DocumentID); err == nil {
			result = r
		}
	}

	next := stateForEvent(event, result)
	machine.Advance(next)

	update := Update{
		State:    machine.Current(),
		Progress: event.Progress,
		Message:  event.Message,
		Event:    event,
		Result:   result,
	}
	if event.Type == "error" || event.Type == "timeout" {
		update.Err = errors.New(eventErrorMessage(event))
	}
	emit(ctx, updates, update)
}

func eventErrorMessage(event *Event) string {
	if event.Error != "" {
		return event.Error
	}
	if event.Type == "timeout" {
		return "processing did not finish within the monitoring window"
	}
	return "document processing failed"
}

func terminalEventType(t string) bool {
	switch t {
	case "completed", "error", "timeout":
		return true
	default:
		return false
	}
}

// shouldFallBack separates transport trouble from genuine rejections: network
// errors, stream parse failures and overload statuses poll instead of dying.
func shouldFallBack(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}
	return true
}

func emit(ctx context.Context, updates chan<- Update, update Update) {
	select {
	case updates <- update:
	case <-ctx.Done():
	}
}
