package monitoring

import (
	"time"

	"event-ticket-gate/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ticketing"

var (
	issuanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuance_total",
			Help:      "Ticket issuance attempts by result",
		},
		[]string{"result"},
	)

	validationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_total",
			Help:      "Gate validations by outcome",
		},
		[]string{"outcome"},
	)

	validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent resolving a gate validation",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	casConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_cas_conflicts_total",
			Help:      "Ticket status updates that lost a concurrent compare-and-set",
		},
	)

	expiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_total",
			Help:      "Tickets moved to expired by the sweeper",
		},
	)
)

// RecordIssuance counts one attempt; result is a short label such as "issued" or "sold_out".
func RecordIssuance(result string) {
	issuanceTotal.WithLabelValues(result).Inc()
}

func RecordValidation(outcome model.ValidationOutcome, elapsed time.Duration) {
	validationTotal.WithLabelValues(string(outcome)).Inc()
	validationDuration.Observe(elapsed.Seconds())
}

func RecordCASConflict() {
	casConflicts.Inc()
}

func RecordExpired(n int) {
	expiredTotal.Add(float64(n))
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
