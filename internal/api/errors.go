package api

import (
	"errors"
	"net/http"

	"github.com/neexbeast/trip-planner/internal/favorites"
	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/planner"
)

type errorBody struct {
	Error          string `json:"error"`
	ExistingStopID string `json:"existing_stop_id,omitempty"`
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, itinerary.ErrNotFound),
		errors.Is(err, favorites.ErrNotFound),
		errors.Is(err, geocode.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, itinerary.ErrTimeConflict),
		errors.Is(err, planner.ErrConfirmRequired):
		return http.StatusConflict
	case errors.Is(err, itinerary.ErrValidation),
		errors.Is(err, itinerary.ErrInvalidRange),
		errors.Is(err, itinerary.ErrLastDay),
		errors.Is(err, itinerary.ErrOutOfOrder),
		errors.Is(err, favorites.ErrValidation),
		errors.Is(err, geocode.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geocode.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status it maps to. Unexpected errors are
// logged and hidden from the client.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}

	body := errorBody{Error: err.Error()}
	var conflict *itinerary.TimeConflictError
	if errors.As(err, &conflict) {
		body.ExistingStopID = conflict.ExistingStopID
	}
	if status == http.StatusBadGateway {
		h.log.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, body)
}
