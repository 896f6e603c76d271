package suntime

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/metrics"
)

const (
	clockLayout = "15:04"
	maxInFlight = 4
)

// Fetcher is satisfied by Client.
type Fetcher interface {
	Fetch(ctx context.Context, at itinerary.Coordinates, date itinerary.Date) (*Times, error)
}

// Augmenter sets Day.Sunrise and Day.Sunset, best effort.
type Augmenter struct {
	fetcher Fetcher
	loc     *time.Location
	log     *slog.Logger
}

// NewAugmenter constructs an Augmenter that renders times in loc (UTC when nil).
func NewAugmenter(fetcher Fetcher, loc *time.Location, log *slog.Logger) *Augmenter {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Augmenter{fetcher: fetcher, loc: loc, log: log}
}

// AugmentDay returns day with sun times for the position at. A nil position
// or a provider failure leaves the day as it was. Times are rendered in the
// augmenter's single configured zone, not the zone local to at, so a trip
// crossing time zones shows some days in a foreign clock.
func (a *Augmenter) AugmentDay(ctx context.Context, day itinerary.Day, at *itinerary.Coordinates) itinerary.Day {
	if at == nil {
		return day
	}

	times, err := a.fetcher.Fetch(ctx, *at, day.Date)
	if err != nil {
		metrics.SunTimeFailures.Inc()
		a.log.Warn("sun times unavailable", "date", day.Date.String(), "err", err)
		return day
	}

	day.Sunrise = times.Sunrise.In(a.loc).Format(clockLayout)
	day.Sunset = times.Sunset.In(a.loc).Format(clockLayout)
	return day
}

// AugmentTrip augments every day from its first geocoded stop. Days are
// fetched concurrently; the input trip is not modified.
func (a *Augmenter) AugmentTrip(ctx context.Context, trip *itinerary.Trip) *itinerary.Trip {
	out := trip.Clone()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for i := range out.Days {
		i := i
		g.Go(func() error {
			out.Days[i] = a.AugmentDay(gCtx, out.Days[i], out.Days[i].FirstGeocoded())
			return nil
		})
	}
	_ = g.Wait()

	return out
}
