package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

type createTripRequest struct {
	Title     string         `json:"title"`
	StartDate itinerary.Date `json:"start_date"`
	EndDate   itinerary.Date `json:"end_date"`
}

type renameTripRequest struct {
	Title string `json:"title"`
}

type resizeRequest struct {
	StartDate itinerary.Date `json:"start_date"`
	EndDate   itinerary.Date `json:"end_date"`
	Confirm   bool           `json:"confirm"`
}

type resizeResponse struct {
	Trip         *itinerary.Trip `json:"trip"`
	AddedDays    int             `json:"added_days"`
	DroppedDays  int             `json:"dropped_days"`
	DroppedStops int             `json:"dropped_stops"`
}

type insertDayRequest struct {
	Index int `json:"index"`
}

// ListTrips handles GET /api/v1/trips.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.planner.ListTrips(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// CreateTrip handles POST /api/v1/trips.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.planner.CreateTrip(r.Context(), req.Title, req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetTrip handles GET /api/v1/trips/{tripID}.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.planner.GetTrip(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// RenameTrip handles PATCH /api/v1/trips/{tripID}.
func (h *Handlers) RenameTrip(w http.ResponseWriter, r *http.Request) {
	var req renameTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.planner.RenameTrip(r.Context(), chi.URLParam(r, "tripID"), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/v1/trips/{tripID}.
func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeleteTrip(r.Context(), chi.URLParam(r, "tripID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResizeDates handles PUT /api/v1/trips/{tripID}/dates.
// Dropping days that hold stops needs "confirm": true, otherwise 409.
func (h *Handlers) ResizeDates(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, res, err := h.planner.ResizeDates(r.Context(), chi.URLParam(r, "tripID"), req.StartDate, req.EndDate, req.Confirm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dropped := 0
	for _, d := range res.Dropped {
		dropped += len(d.Stops)
	}
	writeJSON(w, http.StatusOK, resizeResponse{
		Trip:         trip,
		AddedDays:    res.Added,
		DroppedDays:  len(res.Dropped),
		DroppedStops: dropped,
	})
}

// InsertDay handles POST /api/v1/trips/{tripID}/days.
func (h *Handlers) InsertDay(w http.ResponseWriter, r *http.Request) {
	var req insertDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.planner.InsertDay(r.Context(), chi.URLParam(r, "tripID"), req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// RemoveDay handles DELETE /api/v1/trips/{tripID}/days/{dayID}.
func (h *Handlers) RemoveDay(w http.ResponseWriter, r *http.Request) {
	trip, err := h.planner.RemoveDay(r.Context(), chi.URLParam(r, "tripID"), chi.URLParam(r, "dayID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ResolveCoordinates handles POST /api/v1/trips/{tripID}/geocode.
// It geocodes every stop still missing a position and refreshes sun times.
func (h *Handlers) ResolveCoordinates(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	progress := func(done, total int) {
		h.log.DebugContext(r.Context(), "geocoding trip", "trip_id", tripID, "done", done, "total", total)
	}
	trip, err := h.planner.ResolveMissingCoordinates(r.Context(), tripID, progress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// AugmentSunTimes handles POST /api/v1/trips/{tripID}/suntimes.
func (h *Handlers) AugmentSunTimes(w http.ResponseWriter, r *http.Request) {
	trip, err := h.planner.AugmentSunTimes(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// lineString is a GeoJSON LineString geometry.
type lineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// RouteGeometry handles GET /api/v1/trips/{tripID}/route.
func (h *Handlers) RouteGeometry(w http.ResponseWriter, r *http.Request) {
	points, err := h.planner.RouteGeometry(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	line := lineString{Type: "LineString", Coordinates: make([][2]float64, len(points))}
	for i, p := range points {
		line.Coordinates[i] = [2]float64{p.Lng, p.Lat}
	}
	writeJSON(w, http.StatusOK, line)
}

// Calendar handles GET /api/v1/trips/{tripID}/calendar.ics.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	ics, err := h.planner.Calendar(r.Context(), tripID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trip-"+strings.ReplaceAll(tripID, "\"", "")+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}
