// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsReceived  *prometheus.CounterVec
	EventsDuplicate prometheus.Counter
	EventsMalformed *prometheus.CounterVec
	ConnectorState  *prometheus.GaugeVec

	// Repository metrics
	PairsTracked prometheus.Gauge
	PairsEvicted prometheus.Counter
	PairsDropped prometheus.Counter

	// Enrichment metrics
	EnrichmentsCompleted prometheus.Counter
	EnrichmentsFailed    prometheus.Counter
	EnrichmentQueueFull  prometheus.Counter

	// Matching metrics
	MatchesEmitted *prometheus.CounterVec
	MatchLatency   prometheus.Histogram

	// Safety metrics
	SafetyRejections *prometheus.CounterVec
	PendingConfirms  prometheus.Gauge

	// Execution metrics
	TradesSubmitted *prometheus.CounterVec
	TradeLatency    *prometheus.HistogramVec
	SpendSOL        *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_sniper"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_received_total",
			Help:      "Total raw events received by source",
		}, []string{"source"}),
		EventsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_duplicate_total",
			Help:      "Total events rejected by the deduplicator",
		}),
		EventsMalformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_malformed_total",
			Help:      "Total undecodable payloads dropped by source",
		}, []string{"source"}),
		ConnectorState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "connector_state",
			Help:      "Connector lifecycle state (1 for the active state)",
		}, []string{"connector", "state"}),

		PairsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "pairs_tracked",
			Help:      "Current number of tracked trading pairs",
		}),
		PairsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "pairs_evicted_total",
			Help:      "Total pairs evicted at capacity",
		}),
		PairsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "mutations_dropped_total",
			Help:      "Total mutations dropped while paused",
		}),

		EnrichmentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "completed_total",
			Help:      "Total successful metadata enrichments",
		}),
		EnrichmentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "failed_total",
			Help:      "Total enrichment failures leaving the pair unenriched",
		}),
		EnrichmentQueueFull: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "queue_full_total",
			Help:      "Total enrichment tasks dropped due to queue saturation",
		}),

		MatchesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total matches emitted by config",
		}, []string{"config"}),
		MatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "evaluation_latency_seconds",
			Help:      "Pair evaluation latency across all enabled configs",
			Buckets:   prometheus.DefBuckets,
		}),

		SafetyRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "rejections_total",
			Help:      "Total safety rejections by reason",
		}, []string{"reason"}),
		PendingConfirms: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "pending_confirmations",
			Help:      "Authorizations suspended awaiting confirmation",
		}),

		TradesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_total",
			Help:      "Total trade submissions by provider and outcome",
		}, []string{"provider", "outcome"}),
		TradeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trade_latency_seconds",
			Help:      "Trade submission latency by provider",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		SpendSOL: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "spend_sol_total",
			Help:      "Total authorized spend in SOL by config",
		}, []string{"config"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventReceived increments the raw event counter for a source.
func RecordEventReceived(source string) {
	DefaultMetrics.EventsReceived.WithLabelValues(source).Inc()
}

// RecordDuplicate increments the dedup rejection counter.
func RecordDuplicate() {
	DefaultMetrics.EventsDuplicate.Inc()
}

// RecordMalformed increments the malformed payload counter for a source.
func RecordMalformed(source string) {
	DefaultMetrics.EventsMalformed.WithLabelValues(source).Inc()
}

// SetConnectorState marks a single state active for a connector gauge.
func SetConnectorState(connector, state string) {
	for _, s := range []string{"DISCONNECTED", "CONNECTING", "CONNECTED", "ERROR"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		DefaultMetrics.ConnectorState.WithLabelValues(connector, s).Set(v)
	}
}

// RecordMatch increments the match counter for a config.
func RecordMatch(configID string) {
	DefaultMetrics.MatchesEmitted.WithLabelValues(configID).Inc()
}

// RecordSafetyRejection increments the rejection counter for a reason.
func RecordSafetyRejection(reason string) {
	DefaultMetrics.SafetyRejections.WithLabelValues(reason).Inc()
}

// RecordTrade records one trade submission outcome.
func RecordTrade(provider string, success bool, latencySeconds float64) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	DefaultMetrics.TradesSubmitted.WithLabelValues(provider, outcome).Inc()
	DefaultMetrics.TradeLatency.WithLabelValues(provider).Observe(latencySeconds)
}
