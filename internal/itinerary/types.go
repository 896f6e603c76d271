// Package itinerary holds the day-partitioned trip model and every operation
// that mutates it. Operations are methods on *Trip and either succeed
// completely or leave the trip untouched.
package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day. The zero value is not a valid date.
type Date struct {
	t time.Time
}

// NewDate returns the calendar day for year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / 86400)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Coordinates is a longitude/latitude pair.
type Coordinates struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// StopType classifies a stop.
type StopType string

const (
	StopDrive         StopType = "drive"
	StopActivity      StopType = "activity"
	StopAccommodation StopType = "accommodation"
	StopPlain         StopType = "stop"
)

// Valid reports whether t is one of the known stop types.
func (t StopType) Valid() bool {
	switch t {
	case StopDrive, StopActivity, StopAccommodation, StopPlain:
		return true
	}
	return false
}

// DriveSeparator joins the two places of a drive stop's location.
const DriveSeparator = " to "

// Stop is a single entry of a day's schedule.
// Time is "HH:MM" (24h) or empty for an unscheduled stop.
type Stop struct {
	ID               string       `json:"id"`
	Time             string       `json:"time,omitempty"`
	Location         string       `json:"location"`
	Type             StopType     `json:"type"`
	ActivityIcon     string       `json:"activityIcon,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	StartCoordinates *Coordinates `json:"startCoordinates,omitempty"`
	EndCoordinates   *Coordinates `json:"endCoordinates,omitempty"`
	DrivingTime      string       `json:"drivingTime,omitempty"`
	Distance         string       `json:"distance,omitempty"`
}

// Timed reports whether the stop has a scheduled time.
func (s Stop) Timed() bool { return s.Time != "" }

// Day is one calendar day of a trip.
type Day struct {
	ID          string `json:"id"`
	Date        Date   `json:"date"`
	DrivingTime string `json:"drivingTime,omitempty"`
	Activities  string `json:"activities,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Sunrise     string `json:"sunrise,omitempty"`
	Sunset      string `json:"sunset,omitempty"`
	Stops       []Stop `json:"stops"`
}

// FirstGeocoded returns the position of the first stop that has one, or nil.
// Drives contribute their start coordinate.
func (d Day) FirstGeocoded() *Coordinates {
	for _, s := range d.Stops {
		switch {
		case s.Coordinates != nil:
			c := *s.Coordinates
			return &c
		case s.StartCoordinates != nil:
			c := *s.StartCoordinates
			return &c
		case s.EndCoordinates != nil:
			c := *s.EndCoordinates
			return &c
		}
	}
	return nil
}

// FindStop looks a stop up anywhere in the trip and returns it with the id
// of the day that holds it.
func (t *Trip) FindStop(stopID string) (Stop, string, bool) {
	for _, d := range t.Days {
		if i := d.indexOf(stopID); i >= 0 {
			return d.Stops[i], d.ID, true
		}
	}
	return Stop{}, "", false
}

func (d Day) indexOf(stopID string) int {
	for i, s := range d.Stops {
		if s.ID == stopID {
			return i
		}
	}
	return -1
}

// Trip is the aggregate root: an ordered run of consecutive days.
type Trip struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Days      []Day  `json:"days"`
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	out := *t
	out.Days = cloneDays(t.Days)
	return &out
}

func cloneDays(days []Day) []Day {
	out := make([]Day, len(days))
	for i, d := range days {
		out[i] = d
		out[i].Stops = cloneStops(d.Stops)
	}
	return out
}

func cloneStops(stops []Stop) []Stop {
	out := make([]Stop, len(stops))
	for i, s := range stops {
		out[i] = s
		out[i].Coordinates = cloneCoords(s.Coordinates)
		out[i].StartCoordinates = cloneCoords(s.StartCoordinates)
		out[i].EndCoordinates = cloneCoords(s.EndCoordinates)
	}
	return out
}

func cloneCoords(c *Coordinates) *Coordinates {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (t *Trip) dayIndex(dayID string) int {
	for i, d := range t.Days {
		if d.ID == dayID {
			return i
		}
	}
	return -1
}

// Day returns the day with the given id.
func (t *Trip) Day(dayID string) (Day, bool) {
	i := t.dayIndex(dayID)
	if i < 0 {
		return Day{}, false
	}
	return t.Days[i], true
}

// StopRef addresses a stop inside a trip.
type StopRef struct {
	DayID  string
	StopID string
}

// StopsMissingCoordinates lists stops that have never been geocoded.
func (t *Trip) StopsMissingCoordinates() []StopRef {
	var refs []StopRef
	for _, d := range t.Days {
		for _, s := range d.Stops {
			if strings.TrimSpace(s.Location) == "" {
				continue
			}
			if s.Type == StopDrive {
				if s.StartCoordinates == nil || s.EndCoordinates == nil {
					refs = append(refs, StopRef{DayID: d.ID, StopID: s.ID})
				}
				continue
			}
			if s.Coordinates == nil {
				refs = append(refs, StopRef{DayID: d.ID, StopID: s.ID})
			}
		}
	}
	return refs
}

// refreshRange re-derives StartDate and EndDate from the day sequence.
func (t *Trip) refreshRange() {
	if len(t.Days) == 0 {
		return
	}
	t.StartDate = t.Days[0].Date
	t.EndDate = t.Days[len(t.Days)-1].Date
}
