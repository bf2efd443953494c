// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_sync_runs_total",
			Help: "Completed sync runs by job and final status",
		},
		[]string{"job", "status"},
	)

	SyncItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_sync_items_total",
			Help: "Provider records processed by job and result",
		},
		[]string{"job", "result"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gotit_sync_duration_seconds",
			Help:    "Wall time of sync runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job"},
	)

	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_reconcile_total",
			Help: "Catalog entry reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_resolve_total",
			Help: "Entity resolutions by match strategy",
		},
		[]string{"matched_by"},
	)

	ExpiryTransitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gotit_expiry_transitions_total",
			Help: "Entries moved to leaving_soon by the expiry scanner",
		},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_provider_requests_total",
			Help: "Outbound provider HTTP requests by provider and status code",
		},
		[]string{"provider", "code"},
	)

	ProviderBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gotit_provider_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_events_published_total",
			Help: "Catalog events published by topic",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gotit_events_consumed_total",
			Help: "Catalog events consumed by topic",
		},
		[]string{"topic"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
