// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_bookings_total",
			Help: "Total number of interview booking attempts by outcome",
		},
		[]string{"round_type", "outcome"},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_cancellations_total",
			Help: "Total number of interview cancellations by outcome",
		},
		[]string{"outcome"},
	)

	ReschedulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_reschedules_total",
			Help: "Total number of interview reschedules by outcome",
		},
		[]string{"outcome"},
	)

	CalendarCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "coordinator_calendar_call_duration_seconds",
			Help: "Duration of calendar provider calls in seconds",
		},
		[]string{"operation"},
	)

	ReconciliationFlags = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coordinator_reconciliation_flags_total",
			Help: "Bookings where calendar and system of record may have diverged",
		},
	)

	GateDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_gate_denials_total",
			Help: "Operations rejected by the stage gate",
		},
		[]string{"operation"},
	)
)
