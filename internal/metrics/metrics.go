// Package metrics holds the Prometheus collectors shared by the sync,
// webhook and client paths. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopsync"

// Record outcomes used as the "outcome" label.
const (
	OutcomeUpserted = "upserted"
	OutcomeSkipped  = "skipped"
	OutcomeCreated  = "created"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	webhookEvents  *prometheus.CounterVec
	syncRecords    *prometheus.CounterVec
	syncRuns       *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	remoteRetries  *prometheus.CounterVec
	seededRecords  *prometheus.CounterVec
	skippedTrigger prometheus.Counter
}

// New creates a registry with process and Go collectors plus the shopsync set.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event type and result.",
		}, []string{"type", "result"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Records processed by the reconciler.",
		}, []string{"entity", "outcome"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Reconciliation runs by final status.",
		}, []string{"status"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of reconciliation runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		remoteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_retries_total",
			Help:      "Retried Shopify requests by response status.",
		}, []string{"status"}),
		seededRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seed_records_total",
			Help:      "Synthetic records submitted by the seeder.",
		}, []string{"entity", "outcome"}),
		skippedTrigger: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_skipped_triggers_total",
			Help:      "Scheduled runs skipped because the previous run was still active.",
		}),
	}

	registry.MustRegister(
		m.webhookEvents,
		m.syncRecords,
		m.syncRuns,
		m.syncDuration,
		m.remoteRetries,
		m.seededRecords,
		m.skippedTrigger,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) WebhookEvent(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) SyncRecord(entity, outcome string) {
	if m == nil {
		return
	}
	m.syncRecords.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) SyncRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(status).Inc()
	m.syncDuration.Observe(seconds)
}

func (m *Metrics) RemoteRetry(statusCode int) {
	if m == nil {
		return
	}
	m.remoteRetries.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) SeedRecord(entity, outcome string) {
	if m == nil {
		return
	}
	m.seededRecords.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) SkippedTrigger() {
	if m == nil {
		return
	}
	m.skippedTrigger.Inc()
}
