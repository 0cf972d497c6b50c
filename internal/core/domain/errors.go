package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrTemporary    = errors.New("temporary failure")

	ErrExtraction         = errors.New("extraction failure")
	ErrStateDetection     = errors.New("state detection failure")
	ErrDuplicateDetection = errors.New("duplicate detection failure")
	ErrMapping            = errors.New("mapping failure")
	ErrCalculation        = errors.New("calculation failure")
	ErrPersistence        = errors.New("persistence failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FailureCategory is the stable error code surfaced to callers.
type FailureCategory string

const (
	FailureAuth               FailureCategory = "AUTH"
	FailureNotFound           FailureCategory = "NOT_FOUND"
	FailureConflict           FailureCategory = "CONFLICT"
	FailureExtraction         FailureCategory = "EXTRACTION"
	FailureStateDetection     FailureCategory = "STATE_DETECTION"
	FailureDuplicateDetection FailureCategory = "DUPLICATE_DETECTION"
	FailureMapping            FailureCategory = "MAPPING"
	FailureCalculation        FailureCategory = "CALCULATION"
	FailurePersistence        FailureCategory = "PERSISTENCE"
	FailureUnknown            FailureCategory = "UNKNOWN"
)

// ClassifyFailure buckets an error into the failure taxonomy. Typed kinds win;
// otherwise the message is scanned for keywords so failures raised by external
// services still land in a useful bucket.
func ClassifyFailure(err error) FailureCategory {
	if err == nil {
		return FailureUnknown
	}

	switch {
	case IsKind(err, ErrUnauthorized):
		return FailureAuth
	case IsKind(err, ErrNotFound):
		return FailureNotFound
	case IsKind(err, ErrConflict):
		return FailureConflict
	case IsKind(err, ErrExtraction):
		return FailureExtraction
	case IsKind(err, ErrStateDetection):
		return FailureStateDetection
	case IsKind(err, ErrDuplicateDetection):
		return FailureDuplicateDetection
	case IsKind(err, ErrMapping):
		return FailureMapping
	case IsKind(err, ErrCalculation):
		return FailureCalculation
	case IsKind(err, ErrPersistence):
		return FailurePersistence
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "forbidden", "token"):
		return FailureAuth
	case containsAny(msg, "not found", "no rows"):
		return FailureNotFound
	case containsAny(msg, "already processing", "conflict"):
		return FailureConflict
	case containsAny(msg, "ocr", "extract"):
		return FailureExtraction
	case containsAny(msg, "state detect", "classifier"):
		return FailureStateDetection
	case containsAny(msg, "duplicate"):
		return FailureDuplicateDetection
	case containsAny(msg, "mapping", "map fields"):
		return FailureMapping
	case containsAny(msg, "calculat", "bracket"):
		return FailureCalculation
	case containsAny(msg, "database", "sql", "transaction", "persist"):
		return FailurePersistence
	default:
		return FailureUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
