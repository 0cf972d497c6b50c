package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mpetrenko/taxmate/internal/core/domain"
)

// userFacingMessages keeps raw internals out of responses; the support
// reference in the payload and the server log share the same token so an
// operator can correlate them.
var userFacingMessages = map[domain.FailureCategory]string{
	domain.FailureAuth:               "You are not allowed to perform this operation.",
	domain.FailureNotFound:           "The requested resource was not found.",
	domain.FailureConflict:           "The document is already being processed.",
	domain.FailureExtraction:         "We could not read this document. Try re-uploading a clearer copy.",
	domain.FailureStateDetection:     "We could not determine the state for this document.",
	domain.FailureDuplicateDetection: "Duplicate checking is temporarily unavailable.",
	domain.FailureMapping:            "We could not map this document's amounts to your return.",
	domain.FailureCalculation:        "Tax recalculation failed. Your documents are safe; try again shortly.",
	domain.FailurePersistence:        "Saving your data failed. Nothing was partially written; try again.",
	domain.FailureUnknown:            "Something went wrong. Please try again.",
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error            string `json:"error"`
	Code             string `json:"code"`
	SupportReference string `json:"support_reference"`
	Detail           string `json:"detail,omitempty"`
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	category := domain.ClassifyFailure(err)
	supportRef := uuid.NewString()

	slog.Error("request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"support_reference", supportRef,
		"category", string(category),
		"status", status,
		"error", err,
	)

	message := userFacingMessages[category]
	if message == "" {
		message = userFacingMessages[domain.FailureUnknown]
	}
	detail := ""
	if rt.devMode {
		detail = err.Error()
	}
	writeJSON(w, status, errorBody{
		Error:            message,
		Code:             string(category),
		SupportReference: supportRef,
		Detail:           detail,
	})
}
