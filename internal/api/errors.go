package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/concept"
	"github.com/videostack/storyboard-agent/internal/editor"
	"github.com/videostack/storyboard-agent/internal/export"
	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

// writeServiceError maps domain errors onto HTTP statuses and error codes.
// Actions against an unbound store are no-ops, not failures.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storyboard.ErrUnbound) {
		WriteJSON(w, http.StatusOK, NoopResponse{Status: "noop", Reason: err.Error()})
		return
	}
	status, code := classify(err)
	WriteError(w, status, err.Error(), code)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, storyboard.ErrStaleLoad):
		return http.StatusConflict, "STALE_LOAD"
	case errors.Is(err, storyboard.ErrSceneNotFound),
		errors.Is(err, storyboard.ErrShotNotFound),
		errors.Is(err, concept.ErrDraftNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, storyboard.ErrEmptyPrompt),
		errors.Is(err, storyboard.ErrInvalidDuration),
		errors.Is(err, generation.ErrInvalidParams),
		errors.Is(err, generation.ErrInvalidPrompt),
		errors.Is(err, concept.ErrEmptyConcept),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrInvalidOutputDir):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusUnprocessableEntity, "NOTHING_TO_EXPORT"
	case errors.Is(err, editor.ErrModalClosed),
		errors.Is(err, editor.ErrModalBusy),
		errors.Is(err, editor.ErrDraftLocked),
		errors.Is(err, editor.ErrRegenerateDisabled):
		return http.StatusConflict, "MODAL_STATE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}

	var apiErr *cloud.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, "NOT_FOUND"
		}
		return http.StatusBadGateway, "REMOTE_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
