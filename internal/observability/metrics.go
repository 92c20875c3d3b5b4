// Package observability provides Prometheus metrics for ledger access and aggregation.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	LedgerReads         *prometheus.CounterVec
	LedgerReadDuration  *prometheus.HistogramVec
	LedgerRetries       *prometheus.CounterVec
	Transactions        *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	SkippedAssets       *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg under the given namespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "holdings"
	}
	factory := promauto.With(reg)

	return &Metrics{
		LedgerReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "reads_total",
			Help:      "Ledger read calls by contract method and outcome",
		}, []string{"method", "outcome"}),
		LedgerReadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "read_duration_seconds",
			Help:      "Ledger read latency by contract method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		LedgerRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rate_limit_retries_total",
			Help:      "Ledger calls retried after a rate-limit response",
		}, []string{"method"}),
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Submitted transactions by kind and outcome",
		}, []string{"kind", "outcome"}),
		AggregationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "aggregation_duration_seconds",
			Help:      "Time to aggregate one holder portfolio",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		SkippedAssets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "skipped_assets_total",
			Help:      "Assets excluded from aggregation by reason",
		}, []string{"reason"}),
	}
}

// Handler exposes the collectors registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRead records one ledger read.
func (m *Metrics) ObserveRead(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.LedgerReads.WithLabelValues(method, outcome(err)).Inc()
	m.LedgerReadDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ObserveRetry records a rate-limited call that will be retried.
func (m *Metrics) ObserveRetry(method string) {
	if m == nil {
		return
	}
	m.LedgerRetries.WithLabelValues(method).Inc()
}

// ObserveTransaction records the final outcome of a write.
func (m *Metrics) ObserveTransaction(kind string, err error) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveAggregation records one portfolio aggregation.
func (m *Metrics) ObserveAggregation(start time.Time) {
	if m == nil {
		return
	}
	m.AggregationDuration.Observe(time.Since(start).Seconds())
}

// ObserveSkipped records an asset excluded from aggregation.
func (m *Metrics) ObserveSkipped(reason string) {
	if m == nil {
		return
	}
	m.SkippedAssets.WithLabelValues(reason).Inc()
}
