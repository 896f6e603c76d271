// Package suntime fills in sunrise and sunset for itinerary days.
package suntime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/upstream"
)

// Times are the UTC sunrise and sunset instants for a place and day.
type Times struct {
	Sunrise time.Time
	Sunset  time.Time
}

// Client fetches sun times from sunrise-sunset.org (no API key required).
type Client struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

const sunDefaultURL = "https://api.sunrise-sunset.org/json"

// NewClient constructs a Client.
func NewClient(log *slog.Logger) *Client {
	return NewClientWithURL(sunDefaultURL, log)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{baseURL: baseURL, client: upstream.NewHTTPClient(), log: log}
}

type sunResponse struct {
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
	Status string `json:"status"`
}

// Fetch retrieves sun times at the given position on date.
func (c *Client) Fetch(ctx context.Context, at itinerary.Coordinates, date itinerary.Date) (*Times, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', 6, 64))
	q.Set("date", date.String())
	q.Set("formatted", "0")
	endpoint := c.baseURL + "?" + q.Encode()

	var raw sunResponse
	if err := upstream.GetJSON(ctx, c.client, "sunrise_sunset", endpoint, &raw); err != nil {
		return nil, fmt.Errorf("sun times for %s: %w", date, err)
	}
	if raw.Status != "OK" {
		return nil, fmt.Errorf("sun times for %s: %w", date, &upstream.Error{
			Provider: "sunrise_sunset",
			Err:      fmt.Errorf("status %q", raw.Status),
		})
	}

	sunrise, err := time.Parse(time.RFC3339, raw.Results.Sunrise)
	if err != nil {
		return nil, fmt.Errorf("parsing sunrise %q: %w", raw.Results.Sunrise, err)
	}
	sunset, err := time.Parse(time.RFC3339, raw.Results.Sunset)
	if err != nil {
		return nil, fmt.Errorf("parsing sunset %q: %w", raw.Results.Sunset, err)
	}

	return &Times{Sunrise: sunrise.UTC(), Sunset: sunset.UTC()}, nil
}
