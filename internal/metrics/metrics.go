// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_sessions_total",
			Help: "Total number of captured photo sessions",
		},
		[]string{"event", "method", "status"},
	)

	CaptureErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_errors_total",
			Help: "Capture attempts rejected before any state changed",
		},
		[]string{"event", "reason"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations against the event server",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)

	SessionsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_sessions_pushed_total",
			Help: "Sessions accepted by the server during sync-up",
		},
		[]string{"event"},
	)

	UnphotographedCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reconcile_unphotographed_students",
			Help: "Students not yet accounted for by any session",
		},
		[]string{"event"},
	)
)
