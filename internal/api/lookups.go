package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/trip-planner/internal/favorites"
	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
)

type driveResponse struct {
	Start       *geocode.Result        `json:"start,omitempty"`
	End         *geocode.Result        `json:"end,omitempty"`
	StartError  string                 `json:"start_error,omitempty"`
	EndError    string                 `json:"end_error,omitempty"`
	Midpoint    *itinerary.Coordinates `json:"midpoint,omitempty"`
	Distance    string                 `json:"distance,omitempty"`
	DrivingTime string                 `json:"driving_time,omitempty"`
}

func queryParam(r *http.Request) (string, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return "", fmt.Errorf("%w: query parameter q is required", itinerary.ErrValidation)
	}
	return q, nil
}

// Geocode handles GET /api/v1/geocode?q=.
func (h *Handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	q, err := queryParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.places.Resolve(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Drive handles GET /api/v1/drive?q=Paris%20to%20Lyon.
// Either side may fail on its own; distance and time are only filled when
// both sides resolve and the routing provider answers.
func (h *Handlers) Drive(w http.ResponseWriter, r *http.Request) {
	q, err := queryParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	route, err := h.drives.ResolveDrive(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := driveResponse{Start: route.Start, End: route.End, Midpoint: route.Midpoint}
	if route.StartErr != nil {
		resp.StartError = route.StartErr.Error()
	}
	if route.EndErr != nil {
		resp.EndError = route.EndErr.Error()
	}
	if route.Start != nil && route.End != nil {
		summary, err := h.drives.Summarize(r.Context(), route.Start.Coordinates, route.End.Coordinates)
		if err != nil {
			h.log.WarnContext(r.Context(), "drive summary unavailable", "query", q, "err", err)
		} else {
			resp.Distance = geocode.FormatDistance(summary.DistanceMeters)
			resp.DrivingTime = geocode.FormatDuration(summary.DurationSeconds)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListFavorites handles GET /api/v1/favorites/{scope}.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	places, err := h.favorites.List(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// GetFavorite handles GET /api/v1/favorites/{scope}/{name}.
func (h *Handlers) GetFavorite(w http.ResponseWriter, r *http.Request) {
	place, err := h.favorites.Get(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

// SaveFavorite handles PUT /api/v1/favorites/{scope}/{name}.
// The name in the path wins over one in the body.
func (h *Handlers) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	var place favorites.Place
	if !decodeJSON(w, r, &place) {
		return
	}
	place.Name = chi.URLParam(r, "name")
	saved, err := h.favorites.Save(r.Context(), chi.URLParam(r, "scope"), place)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteFavorite handles DELETE /api/v1/favorites/{scope}/{name}.
func (h *Handlers) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Delete(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
