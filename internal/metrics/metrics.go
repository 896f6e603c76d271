// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var (
	GeocodeCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripplanner_geocode_cache_hits_total",
		Help: "Geocode lookups answered from cache, by tier (memory or store)",
	}, []string{"tier"})
	GeocodeCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripplanner_geocode_cache_misses_total",
		Help: "Geocode lookups that needed an upstream request",
	})
	GeocodeNotFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripplanner_geocode_not_found_total",
		Help: "Geocode lookups with no upstream match",
	})
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripplanner_upstream_requests_total",
		Help: "Requests sent to external providers",
	}, []string{"provider"})
	UpstreamFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripplanner_upstream_failures_total",
		Help: "Failed requests to external providers",
	}, []string{"provider"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripplanner_upstream_duration_ms",
		Help:    "External provider call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"provider"})
	SunTimeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripplanner_suntime_failures_total",
		Help: "Days left without sunrise/sunset after a provider failure",
	})
	BackfillRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripplanner_backfill_runs_total",
		Help: "Coordinate backfill runs by outcome",
	}, []string{"outcome"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripplanner_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})
	HTTPDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripplanner_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: durationBuckets,
	})
)

func init() {
	prometheus.MustRegister(GeocodeCacheHits)
	prometheus.MustRegister(GeocodeCacheMisses)
	prometheus.MustRegister(GeocodeNotFound)
	prometheus.MustRegister(UpstreamRequests)
	prometheus.MustRegister(UpstreamFailures)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(SunTimeFailures)
	prometheus.MustRegister(BackfillRuns)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDurationMs)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
