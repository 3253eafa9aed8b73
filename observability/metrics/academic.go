package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AcademicMetrics tracks transaction application and RPC traffic for the node.
type AcademicMetrics struct {
	transactions *prometheus.CounterVec
	applyLatency *prometheus.HistogramVec
	events       *prometheus.CounterVec
	credits      *prometheus.CounterVec
	rpcRequests  *prometheus.CounterVec
	indexerLag   prometheus.Gauge
}

var (
	academicOnce     sync.Once
	academicRegistry *AcademicMetrics
)

func Academic() *AcademicMetrics {
	academicOnce.Do(func() {
		academicRegistry = &AcademicMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "academic",
				Subsystem: "node",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			applyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "academic",
				Subsystem: "node",
				Name:      "apply_duration_seconds",
				Help:      "Latency of transaction application including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "academic",
				Subsystem: "node",
				Name:      "events_total",
				Help:      "Committed events segmented by event type.",
			}, []string{"type"}),
			credits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "academic",
				Subsystem: "economy",
				Name:      "credits_total",
				Help:      "Credits minted on purchase or burned on registration.",
			}, []string{"direction"}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "academic",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			indexerLag: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "academic",
				Subsystem: "indexer",
				Name:      "pending_events",
				Help:      "Events accepted by the indexer but not yet persisted.",
			}),
		}
		prometheus.MustRegister(
			academicRegistry.transactions,
			academicRegistry.applyLatency,
			academicRegistry.events,
			academicRegistry.credits,
			academicRegistry.rpcRequests,
			academicRegistry.indexerLag,
		)
	})
	return academicRegistry
}

func (m *AcademicMetrics) ObserveTransaction(txType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	txType = label(txType)
	m.transactions.WithLabelValues(txType, label(outcome)).Inc()
	m.applyLatency.WithLabelValues(txType).Observe(elapsed.Seconds())
}

func (m *AcademicMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(label(eventType)).Inc()
}

// ObserveCredits records minted (direction "mint") or burned ("burn") credits.
func (m *AcademicMetrics) ObserveCredits(direction string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.credits.WithLabelValues(label(direction)).Add(float64(amount))
}

func (m *AcademicMetrics) ObserveRPC(method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(label(method), label(outcome)).Inc()
}

func (m *AcademicMetrics) SetIndexerPending(n int) {
	if m == nil {
		return
	}
	m.indexerLag.Set(float64(n))
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
