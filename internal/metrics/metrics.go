// Package metrics holds the Prometheus collectors shared by the server, the
// engine and the breed validator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spycats_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spycats_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"method", "route"})

	// BreedChecks counts breed validator verdicts.
	BreedChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spycats_breed_checks_total",
		Help: "Breed validation results by verdict",
	}, []string{"verdict"})

	BreedCatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spycats_breed_catalog_fetches_total",
		Help: "Breed catalog fetches by result",
	}, []string{"result"})

	// Transitions counts committed cat and mission state changes.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spycats_transitions_total",
		Help: "Committed state transitions by entity and transition",
	}, []string{"entity", "transition"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
