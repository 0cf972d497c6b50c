package client

import "sync"

// stateTransitions encodes the legal moves. Anything not listed is ignored,
// which makes replayed or out-of-order events harmless.
var stateTransitions = map[DocumentState][]DocumentState{
	StatePending:          {StateUploading, StateProcessing, StateError},
	StateUploading:        {StateProcessing, StateError},
	StateProcessing:       {StateExtraction, StateCompleted, StateDuplicateWarning, StateError},
	StateExtraction:       {StateCompleted, StateDuplicateWarning, StateError},
	StateDuplicateWarning: {StateProcessing, StateCompleted, StateError},
	StateCompleted:        {},
	StateError:            {StateProcessing},
}

// StateMachine tracks one document's client-side lifecycle. Safe for
// concurrent reads while the monitor goroutine advances it.
type StateMachine struct {
	mu      sync.Mutex
	current DocumentState
}

func NewStateMachine() *StateMachine {
	return &StateMachine{current: StatePending}
}

func (m *StateMachine) Current() DocumentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves to next when the transition is legal and reports whether the
// state changed.
func (m *StateMachine) Advance(next DocumentState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == next {
		return false
	}
	for _, allowed := range stateTransitions[m.current] {
		if allowed == next {
			m.current = next
			return true
		}
	}
	return false
}

// stateForEvent maps a status-channel event onto the machine's vocabulary.
func stateForEvent(event *Event, result *ProcessingResult) DocumentState {
	switch event.Type {
	case "completed":
		if result != nil && result.RequiresManualReview {
			return StateDuplicateWarning
		}
		return StateCompleted
	case "error", "timeout":
		return StateError
	case "status_update":
		if event.Status == "COMPLETED" {
			return StateCompleted
		}
		if event.HasExtractedData {
			return StateExtraction
		}
		return StateProcessing
	default:
		return StateProcessing
	}
}
