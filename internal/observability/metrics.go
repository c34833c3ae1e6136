// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the marketplace client.
type Metrics struct {
	// Repository metrics
	RefreshesTotal  *prometheus.CounterVec
	RefreshErrors   *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	SnapshotSize    *prometheus.GaugeVec
	DroppedRecords  *prometheus.CounterVec

	// Gateway metrics
	GatewayCalls    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec

	// Transaction metrics
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec

	// Event feed metrics
	FeedEventsTotal *prometheus.CounterVec
	FeedReconnects  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nft_market_client"
	}

	return &Metrics{
		RefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "refreshes_total",
			Help:      "Total number of repository refreshes by scope",
		}, []string{"scope"}),
		RefreshErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "refresh_errors_total",
			Help:      "Total number of failed repository refreshes by scope",
		}, []string{"scope"}),
		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "refresh_duration_seconds",
			Help:      "Repository refresh duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		SnapshotSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "snapshot_size",
			Help:      "Number of entities in the current snapshot by scope",
		}, []string{"scope"}),
		DroppedRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "dropped_records_total",
			Help:      "Total number of records dropped during decode by scope",
		}, []string{"scope"}),

		GatewayCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of ledger gateway calls by operation and status",
		}, []string{"op", "status"}),
		GatewayDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Ledger gateway call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		TransactionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txflow",
			Name:      "transactions_total",
			Help:      "Total number of orchestrated transactions by kind and outcome",
		}, []string{"kind", "outcome"}),
		TransactionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "txflow",
			Name:      "transaction_duration_seconds",
			Help:      "End-to-end transaction duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),

		FeedEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Total number of marketplace events received on the feed",
		}, []string{"kind"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of event feed reconnect attempts",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// TimeRefresh starts timing a refresh; the returned func records the
// outcome and duration.
func TimeRefresh(scope string) func(err error) {
	start := time.Now()
	return func(err error) {
		DefaultMetrics.RefreshesTotal.WithLabelValues(scope).Inc()
		DefaultMetrics.RefreshDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
		if err != nil {
			DefaultMetrics.RefreshErrors.WithLabelValues(scope).Inc()
		}
	}
}

// SetSnapshotSize updates the snapshot size gauge for a scope.
func SetSnapshotSize(scope string, n int) {
	DefaultMetrics.SnapshotSize.WithLabelValues(scope).Set(float64(n))
}

// RecordDroppedRecord counts a record dropped during decode.
func RecordDroppedRecord(scope string) {
	DefaultMetrics.DroppedRecords.WithLabelValues(scope).Inc()
}

// TimeGatewayCall starts timing a gateway call; the returned func records
// the outcome and duration.
func TimeGatewayCall(op string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		DefaultMetrics.GatewayCalls.WithLabelValues(op, status).Inc()
		DefaultMetrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// RecordTransaction records a completed transaction flow.
func RecordTransaction(kind, outcome string, durationSeconds float64) {
	DefaultMetrics.TransactionsTotal.WithLabelValues(kind, outcome).Inc()
	DefaultMetrics.TransactionDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordFeedEvent counts a received marketplace event by kind.
func RecordFeedEvent(kind string) {
	DefaultMetrics.FeedEventsTotal.WithLabelValues(kind).Inc()
}

// RecordFeedReconnect counts an event feed reconnect attempt.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}
