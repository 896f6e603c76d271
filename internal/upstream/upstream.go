// Package upstream is the shared HTTP plumbing for external providers.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/neexbeast/trip-planner/internal/metrics"
)

const httpTimeout = 10 * time.Second

// ErrUnavailable matches every *Error.
var ErrUnavailable = errors.New("upstream provider failure")

// Error wraps a transport or HTTP failure from a provider.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// NewHTTPClient returns an http.Client with a 10-second timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// GetJSON performs a GET request and decodes the JSON response into dst.
// Transport errors and non-200 answers come back as *Error. provider labels
// the request in metrics.
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, dst any) error {
	metrics.UpstreamRequests.WithLabelValues(provider).Inc()
	start := time.Now()
	defer func() {
		metrics.UpstreamDurationMs.WithLabelValues(provider).Observe(float64(time.Since(start).Milliseconds()))
	}()

	fail := func(err error) error {
		metrics.UpstreamFailures.WithLabelValues(provider).Inc()
		return &Error{Provider: provider, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(fmt.Errorf("creating request: %w", err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("GET: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("GET returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fail(fmt.Errorf("decoding response: %w", err))
	}

	return nil
}
