package itinerary

import "fmt"

// MaxTripDays is the longest range a trip may span.
const MaxTripDays = 366

// checkRange validates [start, end] as a trip range.
func checkRange(start, end Date) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	if start.AddDays(MaxTripDays - 1).Before(end) {
		return fmt.Errorf("%w: %s..%s is longer than %d days", ErrInvalidRange, start, end, MaxTripDays)
	}
	return nil
}

// ResizeResult reports what a date-range change discarded.
type ResizeResult struct {
	// Added is the number of empty days appended.
	Added int
	// Dropped holds the trailing days that were removed, stops included.
	Dropped []Day
}

// Destructive reports whether any stops were discarded.
func (r ResizeResult) Destructive() bool {
	for _, d := range r.Dropped {
		if len(d.Stops) > 0 {
			return true
		}
	}
	return false
}

// ResizeDates moves the trip onto [newStart, newEnd]. Existing days keep
// their stops and are relabeled in order; missing days are appended empty;
// surplus trailing days are dropped and returned in the result.
func (t *Trip) ResizeDates(newStart, newEnd Date) (ResizeResult, error) {
	if err := checkRange(newStart, newEnd); err != nil {
		return ResizeResult{}, err
	}

	n := newStart.DaysUntil(newEnd) + 1
	var res ResizeResult

	days := make([]Day, 0, n)
	for i, d := range t.Days {
		if i >= n {
			res.Dropped = append(res.Dropped, d)
			continue
		}
		d.Date = newStart.AddDays(i)
		days = append(days, d)
	}
	for i := len(days); i < n; i++ {
		days = append(days, Day{ID: newID(), Date: newStart.AddDays(i), Stops: []Stop{}})
		res.Added++
	}

	t.Days = days
	t.refreshRange()
	return res, nil
}

// InsertDay adds an empty day at index. Index 0 prepends the day before the
// current first day, an index at or past the end appends the day after the
// last day, and anything in between takes over the date at index while the
// days from index on move one day later.
func (t *Trip) InsertDay(index int) (Day, error) {
	if index < 0 {
		return Day{}, fmt.Errorf("%w: negative day index %d", ErrValidation, index)
	}
	if len(t.Days) == 0 {
		return Day{}, fmt.Errorf("%w: trip has no days", ErrValidation)
	}
	if len(t.Days) >= MaxTripDays {
		return Day{}, fmt.Errorf("%w: trip already spans %d days", ErrInvalidRange, MaxTripDays)
	}

	day := Day{ID: newID(), Stops: []Stop{}}
	days := make([]Day, 0, len(t.Days)+1)

	switch {
	case index == 0:
		day.Date = t.Days[0].Date.AddDays(-1)
		days = append(days, day)
		days = append(days, t.Days...)
	case index >= len(t.Days):
		day.Date = t.Days[len(t.Days)-1].Date.AddDays(1)
		days = append(days, t.Days...)
		days = append(days, day)
	default:
		day.Date = t.Days[index].Date
		days = append(days, t.Days[:index]...)
		days = append(days, day)
		for _, d := range t.Days[index:] {
			d.Date = d.Date.AddDays(1)
			days = append(days, d)
		}
	}

	t.Days = days
	t.refreshRange()
	return day, nil
}

// RemoveDay deletes a day with all its stops; every later day moves one day
// earlier so the range stays contiguous.
func (t *Trip) RemoveDay(dayID string) error {
	di := t.dayIndex(dayID)
	if di < 0 {
		return fmt.Errorf("day %s: %w", dayID, ErrNotFound)
	}
	if len(t.Days) == 1 {
		return ErrLastDay
	}

	days := make([]Day, 0, len(t.Days)-1)
	days = append(days, t.Days[:di]...)
	for _, d := range t.Days[di+1:] {
		d.Date = d.Date.AddDays(-1)
		days = append(days, d)
	}

	t.Days = days
	t.refreshRange()
	return nil
}
