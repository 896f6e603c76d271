package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

// Request envelopes use snake_case. The stop itself keeps the camelCase
// field names it is stored with.
type addStopRequest struct {
	Stop        itinerary.StopInput `json:"stop"`
	InsertIndex *int                `json:"insert_index,omitempty"`
}

type reorderRequest struct {
	StopIDs []string `json:"stop_ids"`
}

type moveRequest struct {
	FromDayID   string `json:"from_day_id"`
	ToDayID     string `json:"to_day_id"`
	StopID      string `json:"stop_id"`
	TargetIndex *int   `json:"target_index,omitempty"`
}

type moveResponse struct {
	Trip  *itinerary.Trip `json:"trip"`
	Index int             `json:"index"`
}

type addFavoriteRequest struct {
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Time        string `json:"time,omitempty"`
	InsertIndex *int   `json:"insert_index,omitempty"`
}

// AddStop handles POST /api/v1/trips/{tripID}/days/{dayID}/stops.
func (h *Handlers) AddStop(w http.ResponseWriter, r *http.Request) {
	var req addStopRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stop, err := h.planner.AddStop(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"), req.Stop, req.InsertIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stop)
}

// AddFavoriteStop handles POST /api/v1/trips/{tripID}/days/{dayID}/favorites.
// The saved place becomes a new stop on that day.
func (h *Handlers) AddFavoriteStop(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	place, err := h.favorites.Get(r.Context(), req.Scope, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stop, err := h.planner.AddStop(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"), place.AsStop(req.Time), req.InsertIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stop)
}

// UpdateStop handles PATCH /api/v1/trips/{tripID}/days/{dayID}/stops/{stopID}.
func (h *Handlers) UpdateStop(w http.ResponseWriter, r *http.Request) {
	var patch itinerary.StopPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	intent := itinerary.FieldPatch{StopID: chi.URLParam(r, "stopID"), Patch: patch}
	trip, err := h.planner.UpdateStop(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"), intent)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ReorderStops handles PUT /api/v1/trips/{tripID}/days/{dayID}/stops/order.
func (h *Handlers) ReorderStops(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.planner.UpdateStop(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"), itinerary.Reorder{StopIDs: req.StopIDs})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DeleteStop handles DELETE /api/v1/trips/{tripID}/days/{dayID}/stops/{stopID}.
func (h *Handlers) DeleteStop(w http.ResponseWriter, r *http.Request) {
	trip, err := h.planner.DeleteStop(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"), chi.URLParam(r, "stopID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// MoveStop handles POST /api/v1/trips/{tripID}/moves.
// A timed stop whose time is already taken on the target day yields 409.
func (h *Handlers) MoveStop(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.StopID) == "" || req.FromDayID == "" || req.ToDayID == "" {
		h.writeError(w, r, fmt.Errorf("%w: from_day_id, to_day_id and stop_id are required", itinerary.ErrValidation))
		return
	}
	trip, idx, err := h.planner.MoveStop(r.Context(), chi.URLParam(r, "tripID"), req.FromDayID, req.ToDayID, req.StopID, req.TargetIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Trip: trip, Index: idx})
}
