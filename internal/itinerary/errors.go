package itinerary

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the addressed day or stop does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input is malformed (bad time, unknown type,
	// reorder that is not a permutation, ...).
	ErrValidation = errors.New("validation error")

	// ErrOutOfOrder means the change would put timed stops out of
	// chronological order within a day.
	ErrOutOfOrder = errors.New("timed stops out of order")

	// ErrTimeConflict means a timed stop was moved into a day that already
	// has a stop at exactly that time.
	ErrTimeConflict = errors.New("time conflict")

	// ErrInvalidRange means an end date before the start date.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrLastDay means the operation would leave the trip without days.
	ErrLastDay = errors.New("cannot remove the last day")
)

// TimeConflictError carries the stop that already occupies the slot.
type TimeConflictError struct {
	DayID          string
	Time           string
	ExistingStopID string
}

func (e *TimeConflictError) Error() string {
	return fmt.Sprintf("time conflict: day %s already has stop %s at %s", e.DayID, e.ExistingStopID, e.Time)
}

func (e *TimeConflictError) Is(target error) bool { return target == ErrTimeConflict }
