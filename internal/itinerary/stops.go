package itinerary

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newID generates identifiers for trips, days and stops.
var newID = uuid.NewString

// lateCheckIn is the earliest accommodation time that is rolled over to
// checkInTime.
const (
	lateCheckIn = "18:00"
	checkInTime = "08:00"
)

// StopInput is the payload for AddStop. For drives, StartLocation and
// EndLocation are joined into the composite Location.
type StopInput struct {
	Time          string       `json:"time,omitempty"`
	Location      string       `json:"location,omitempty"`
	StartLocation string       `json:"startLocation,omitempty"`
	EndLocation   string       `json:"endLocation,omitempty"`
	Type          StopType     `json:"type"`
	ActivityIcon  string       `json:"activityIcon,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	DrivingTime   string       `json:"drivingTime,omitempty"`
	Distance      string       `json:"distance,omitempty"`
}

// StopPatch changes selected fields of a stop. Nil fields are left alone.
type StopPatch struct {
	Time             *string      `json:"time,omitempty"`
	Location         *string      `json:"location,omitempty"`
	StartLocation    *string      `json:"startLocation,omitempty"`
	EndLocation      *string      `json:"endLocation,omitempty"`
	Type             *StopType    `json:"type,omitempty"`
	ActivityIcon     *string      `json:"activityIcon,omitempty"`
	Notes            *string      `json:"notes,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	StartCoordinates *Coordinates `json:"startCoordinates,omitempty"`
	EndCoordinates   *Coordinates `json:"endCoordinates,omitempty"`
	DrivingTime      *string      `json:"drivingTime,omitempty"`
	Distance         *string      `json:"distance,omitempty"`
}

// NewTrip builds a trip with one empty day per calendar day in [start, end].
func NewTrip(id, title string, start, end Date) (*Trip, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	if id == "" {
		id = newID()
	}

	n := start.DaysUntil(end) + 1
	days := make([]Day, n)
	for i := range days {
		days[i] = Day{ID: newID(), Date: start.AddDays(i), Stops: []Stop{}}
	}

	return &Trip{
		ID:        id,
		Title:     strings.TrimSpace(title),
		StartDate: start,
		EndDate:   end,
		Days:      days,
	}, nil
}

// Rename changes the trip title.
func (t *Trip) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	t.Title = title
	return nil
}

// AddStop creates a stop in the given day. With insertIndex the stop is
// spliced at that position (clamped to the day's bounds); without it an
// untimed stop is appended and a timed stop is placed chronologically.
func (t *Trip) AddStop(dayID string, in StopInput, insertIndex *int) (Stop, error) {
	di := t.dayIndex(dayID)
	if di < 0 {
		return Stop{}, fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}

	stop, err := in.build()
	if err != nil {
		return Stop{}, err
	}
	stop.ID = newID()

	current := t.Days[di].Stops
	var idx int
	switch {
	case insertIndex != nil:
		idx = clamp(*insertIndex, len(current))
	case stop.Timed():
		idx = chronologicalIndex(current, stop.Time, true)
	default:
		idx = len(current)
	}

	next := insertAt(current, idx, stop)
	if !inOrder(next) {
		return Stop{}, fmt.Errorf("%w: %s at position %d", ErrOutOfOrder, stop.Time, idx)
	}
	t.Days[di].Stops = next
	return stop, nil
}

// UpdateStop applies patch to a stop in place. Identifier and position are
// kept; coordinates change only when the patch sets them.
func (t *Trip) UpdateStop(dayID, stopID string, patch StopPatch) (Stop, error) {
	di := t.dayIndex(dayID)
	if di < 0 {
		return Stop{}, fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	si := t.Days[di].indexOf(stopID)
	if si < 0 {
		return Stop{}, fmt.Errorf("stop %s: %w", stopID, ErrNotFound)
	}

	updated, err := patch.apply(t.Days[di].Stops[si])
	if err != nil {
		return Stop{}, err
	}

	next := cloneStops(t.Days[di].Stops)
	next[si] = updated
	if !inOrder(next) {
		return Stop{}, fmt.Errorf("%w: %s does not fit at position %d", ErrOutOfOrder, updated.Time, si)
	}
	t.Days[di].Stops = next
	return updated, nil
}

// DeleteStop removes a stop. Deleting a stop that is already gone is not an
// error.
func (t *Trip) DeleteStop(dayID, stopID string) error {
	di := t.dayIndex(dayID)
	if di < 0 {
		return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	si := t.Days[di].indexOf(stopID)
	if si < 0 {
		return nil
	}
	t.Days[di].Stops = removeAt(t.Days[di].Stops, si)
	return nil
}

// ReorderStops replaces the day's sequence with the given permutation of its
// stop ids.
func (t *Trip) ReorderStops(dayID string, stopIDs []string) error {
	di := t.dayIndex(dayID)
	if di < 0 {
		return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	current := t.Days[di].Stops
	if len(stopIDs) != len(current) {
		return fmt.Errorf("%w: reorder has %d stops, day has %d", ErrValidation, len(stopIDs), len(current))
	}

	byID := make(map[string]Stop, len(current))
	for _, s := range current {
		byID[s.ID] = s
	}
	seen := make(map[string]struct{}, len(stopIDs))
	next := make([]Stop, 0, len(stopIDs))
	for _, id := range stopIDs {
		s, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown stop %s in reorder", ErrValidation, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate stop %s in reorder", ErrValidation, id)
		}
		seen[id] = struct{}{}
		next = append(next, s)
	}

	if !inOrder(next) {
		return fmt.Errorf("%w: reorder breaks time order", ErrOutOfOrder)
	}
	t.Days[di].Stops = next
	return nil
}

// MoveStop moves a stop to another day and returns the index it landed at.
// Untimed stops go to targetIndex (or the end). Timed stops ignore
// targetIndex: they are placed after the last stop with an earlier time,
// and a stop with the same time in the target day aborts the move with a
// *TimeConflictError.
func (t *Trip) MoveStop(fromDayID, toDayID, stopID string, targetIndex *int) (int, error) {
	fi := t.dayIndex(fromDayID)
	if fi < 0 {
		return 0, fmt.Errorf("day %s: %w", fromDayID, ErrNotFound)
	}
	ti := t.dayIndex(toDayID)
	if ti < 0 {
		return 0, fmt.Errorf("day %s: %w", toDayID, ErrNotFound)
	}
	si := t.Days[fi].indexOf(stopID)
	if si < 0 {
		return 0, fmt.Errorf("stop %s: %w", stopID, ErrNotFound)
	}

	moving := t.Days[fi].Stops[si]
	source := removeAt(t.Days[fi].Stops, si)
	target := t.Days[ti].Stops
	if fi == ti {
		target = source
	}

	var idx int
	if !moving.Timed() {
		idx = len(target)
		if targetIndex != nil {
			idx = clamp(*targetIndex, len(target))
		}
	} else {
		for _, s := range target {
			if s.Timed() && s.Time == moving.Time {
				return 0, &TimeConflictError{DayID: toDayID, Time: moving.Time, ExistingStopID: s.ID}
			}
		}
		idx = chronologicalIndex(target, moving.Time, false)
	}

	next := insertAt(target, idx, moving)
	if fi == ti {
		t.Days[fi].Stops = next
		return idx, nil
	}
	t.Days[fi].Stops = source
	t.Days[ti].Stops = next
	return idx, nil
}

// Validate checks the structural invariants of the trip.
func (t *Trip) Validate() error {
	if len(t.Days) == 0 {
		return fmt.Errorf("%w: trip has no days", ErrValidation)
	}
	if !t.StartDate.Equal(t.Days[0].Date) || !t.EndDate.Equal(t.Days[len(t.Days)-1].Date) {
		return fmt.Errorf("%w: trip range %s..%s does not match days", ErrValidation, t.StartDate, t.EndDate)
	}
	for i, d := range t.Days {
		if i > 0 && !t.Days[i-1].Date.AddDays(1).Equal(d.Date) {
			return fmt.Errorf("%w: day %d (%s) does not follow %s", ErrValidation, i, d.Date, t.Days[i-1].Date)
		}
		if !inOrder(d.Stops) {
			return fmt.Errorf("%w: day %s", ErrOutOfOrder, d.Date)
		}
		for _, s := range d.Stops {
			if s.Type == StopDrive {
				if _, _, ok := SplitDrive(s.Location); !ok {
					return fmt.Errorf("%w: drive %s location %q", ErrValidation, s.ID, s.Location)
				}
			}
		}
	}
	return nil
}

// SplitDrive splits a drive location on the first " to " (any case).
func SplitDrive(location string) (from, to string, ok bool) {
	seps := IndexDriveSeparators(location)
	if len(seps) == 0 {
		return "", "", false
	}
	i := seps[0]
	from = strings.TrimSpace(location[:i])
	to = strings.TrimSpace(location[i+len(DriveSeparator):])
	return from, to, from != "" && to != ""
}

// IndexDriveSeparators returns the byte offsets of every non-overlapping
// " to " in location, matched case-insensitively. Offsets index location
// itself, never a case-folded copy.
func IndexDriveSeparators(location string) []int {
	var out []int
	n := len(DriveSeparator)
	for i := 0; i+n <= len(location); {
		if strings.EqualFold(location[i:i+n], DriveSeparator) {
			out = append(out, i)
			i += n
			continue
		}
		i++
	}
	return out
}

// NormalizeTime validates an "HH:MM" time and zero-pads it. Empty stays empty.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid time %q, want HH:MM", ErrValidation, s)
	}
	return parsed.Format("15:04"), nil
}

func (in StopInput) build() (Stop, error) {
	typ := in.Type
	if typ == "" {
		typ = StopPlain
	}
	if !typ.Valid() {
		return Stop{}, fmt.Errorf("%w: unknown stop type %q", ErrValidation, in.Type)
	}
	tm, err := NormalizeTime(in.Time)
	if err != nil {
		return Stop{}, err
	}

	s := Stop{
		Time:        tm,
		Location:    strings.TrimSpace(in.Location),
		Type:        typ,
		Notes:       in.Notes,
		Coordinates: cloneCoords(in.Coordinates),
		DrivingTime: in.DrivingTime,
		Distance:    in.Distance,
	}

	switch typ {
	case StopDrive:
		start, end := strings.TrimSpace(in.StartLocation), strings.TrimSpace(in.EndLocation)
		if start != "" || end != "" {
			if start == "" || end == "" {
				return Stop{}, fmt.Errorf("%w: drive needs both start and end location", ErrValidation)
			}
			s.Location = start + DriveSeparator + end
		}
		if _, _, ok := SplitDrive(s.Location); !ok {
			return Stop{}, fmt.Errorf("%w: drive location must be \"<start> to <end>\"", ErrValidation)
		}
	case StopActivity:
		s.ActivityIcon = in.ActivityIcon
	case StopAccommodation:
		if s.Time >= lateCheckIn {
			s.Time = checkInTime
		}
	}

	if s.Location == "" {
		return Stop{}, fmt.Errorf("%w: location is required", ErrValidation)
	}
	return s, nil
}

func (p StopPatch) apply(s Stop) (Stop, error) {
	s.Coordinates = cloneCoords(s.Coordinates)
	s.StartCoordinates = cloneCoords(s.StartCoordinates)
	s.EndCoordinates = cloneCoords(s.EndCoordinates)

	if p.Type != nil {
		if !p.Type.Valid() {
			return Stop{}, fmt.Errorf("%w: unknown stop type %q", ErrValidation, *p.Type)
		}
		s.Type = *p.Type
	}
	if p.Time != nil {
		tm, err := NormalizeTime(*p.Time)
		if err != nil {
			return Stop{}, err
		}
		s.Time = tm
	}
	if p.Location != nil {
		s.Location = strings.TrimSpace(*p.Location)
	}
	if p.StartLocation != nil || p.EndLocation != nil {
		from, to, _ := SplitDrive(s.Location)
		if p.StartLocation != nil {
			from = strings.TrimSpace(*p.StartLocation)
		}
		if p.EndLocation != nil {
			to = strings.TrimSpace(*p.EndLocation)
		}
		s.Location = from + DriveSeparator + to
	}
	if p.ActivityIcon != nil {
		s.ActivityIcon = *p.ActivityIcon
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.Coordinates != nil {
		s.Coordinates = cloneCoords(p.Coordinates)
	}
	if p.StartCoordinates != nil {
		s.StartCoordinates = cloneCoords(p.StartCoordinates)
	}
	if p.EndCoordinates != nil {
		s.EndCoordinates = cloneCoords(p.EndCoordinates)
	}
	if p.DrivingTime != nil {
		s.DrivingTime = *p.DrivingTime
	}
	if p.Distance != nil {
		s.Distance = *p.Distance
	}

	if s.Location == "" {
		return Stop{}, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if s.Type == StopDrive {
		if _, _, ok := SplitDrive(s.Location); !ok {
			return Stop{}, fmt.Errorf("%w: drive location must be \"<start> to <end>\"", ErrValidation)
		}
	}
	if s.Type != StopActivity {
		s.ActivityIcon = ""
	}
	return s, nil
}

// chronologicalIndex returns the slot for a stop at tm: right after the
// last stop timed before tm, with untimed stops along the way pushing the
// slot forward. With orEqual, stops at exactly tm also count as before.
func chronologicalIndex(stops []Stop, tm string, orEqual bool) int {
	idx := 0
	for i, s := range stops {
		if !s.Timed() || s.Time < tm || (orEqual && s.Time == tm) {
			idx = i + 1
			continue
		}
		break
	}
	return idx
}

// inOrder reports whether the timed stops are in non-decreasing order.
func inOrder(stops []Stop) bool {
	last := ""
	for _, s := range stops {
		if !s.Timed() {
			continue
		}
		if s.Time < last {
			return false
		}
		last = s.Time
	}
	return true
}

func insertAt(stops []Stop, idx int, s Stop) []Stop {
	out := make([]Stop, 0, len(stops)+1)
	out = append(out, stops[:idx]...)
	out = append(out, s)
	return append(out, stops[idx:]...)
}

func removeAt(stops []Stop, idx int) []Stop {
	out := make([]Stop, 0, len(stops)-1)
	out = append(out, stops[:idx]...)
	return append(out, stops[idx+1:]...)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
