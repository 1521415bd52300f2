package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedemptionDuration tracks the latency of pickup code issuance.
	RedemptionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pedebar_redemption_duration_seconds",
			Help:    "Duration of redemption requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"status"}, // success or failure
	)

	// CodesConfirmed counts staff confirmations by outcome.
	CodesConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedebar_codes_confirmed_total",
			Help: "Pickup code confirmation attempts by outcome",
		},
		[]string{"status"}, // success, already_used, superseded, not_found, failure
	)

	// OrdersSwept counts unpaid orders cancelled by the expiry sweep.
	OrdersSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pedebar_orders_swept_total",
			Help: "Orders cancelled for exceeding the payment timeout",
		},
	)
)

// RecordRedemptionDuration records the duration of a redemption request.
func RecordRedemptionDuration(status string, duration float64) {
	RedemptionDuration.WithLabelValues(status).Observe(duration)
}

// RecordConfirmation records the outcome of a confirm attempt.
func RecordConfirmation(status string) {
	CodesConfirmed.WithLabelValues(status).Inc()
}
