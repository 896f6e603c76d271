// Package export renders trips in formats other applications understand.
package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

const (
	productID     = "-//trip-planner//itinerary//EN"
	timedDuration = time.Hour
)

// Calendar renders trip as an iCalendar document. Timed stops become
// one-hour events at their local time in loc; untimed stops become all-day
// events. now stamps every event.
func Calendar(trip *itinerary.Trip, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(trip.Title)

	for _, day := range trip.Days {
		for _, stop := range day.Stops {
			ev := cal.AddEvent(stop.ID + "@trip-planner")
			ev.SetDtStampTime(now.UTC())
			ev.SetSummary(summary(stop))
			ev.SetLocation(stop.Location)
			if desc := description(day, stop); desc != "" {
				ev.SetDescription(desc)
			}

			start, ok := startOf(day.Date, stop.Time, loc)
			if !ok {
				ev.SetAllDayStartAt(day.Date.Time())
				ev.SetAllDayEndAt(day.Date.AddDays(1).Time())
				continue
			}
			ev.SetStartAt(start.UTC())
			ev.SetEndAt(start.Add(timedDuration).UTC())
		}
	}

	return cal.Serialize()
}

func startOf(date itinerary.Date, hhmm string, loc *time.Location) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	d := date.Time()
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), true
}

func summary(s itinerary.Stop) string {
	switch s.Type {
	case itinerary.StopDrive:
		return "Drive: " + s.Location
	case itinerary.StopAccommodation:
		return "Stay: " + s.Location
	default:
		return s.Location
	}
}

func description(day itinerary.Day, s itinerary.Stop) string {
	var parts []string
	if s.Notes != "" {
		parts = append(parts, s.Notes)
	}
	if s.DrivingTime != "" || s.Distance != "" {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s", s.DrivingTime, s.Distance)))
	}
	if day.Sunrise != "" && day.Sunset != "" {
		parts = append(parts, fmt.Sprintf("Sunrise %s, sunset %s", day.Sunrise, day.Sunset))
	}
	return strings.Join(parts, "\n")
}
