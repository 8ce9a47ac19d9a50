package metrics

import (
	"net/http"
	"strings"
	"time"

	"market-pulse/src/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "market_pulse"

// Collector is a prometheus.Collector for the aggregation engine. A nil
// *Collector is valid and records nothing.
type Collector struct {
	fetchAttempts   *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	snapshots       *prometheus.CounterVec
	suppressed      *prometheus.CounterVec
	staleResults    *prometheus.CounterVec
	published       *prometheus.CounterVec
	droppedMessages prometheus.Counter
	sessions        prometheus.Gauge
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		fetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fetch_attempts_total",
				Help:      "Fetch attempts per source by outcome.",
			}, []string{"source", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "fetch_run_seconds",
				Help:      "Duration of a fetch run including retries.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"source"},
		),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshots_total",
				Help:      "Snapshots stored per source by status.",
			}, []string{"source", "status"},
		),
		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "suppressed_updates_total",
				Help:      "Updates judged not broadcast-worthy.",
			}, []string{"source"},
		),
		staleResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "stale_results_total",
				Help:      "Fetch results discarded because a newer snapshot had landed.",
			}, []string{"source"},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "published_messages_total",
				Help:      "Messages published per topic.",
			}, []string{"topic"},
		),
		droppedMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dropped_messages_total",
				Help:      "Messages dropped from full session queues.",
			},
		),
		sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "sessions",
				Help:      "Currently connected sessions.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.fetchAttempts.Describe(ch)
	c.fetchDuration.Describe(ch)
	c.snapshots.Describe(ch)
	c.suppressed.Describe(ch)
	c.staleResults.Describe(ch)
	c.published.Describe(ch)
	c.droppedMessages.Describe(ch)
	c.sessions.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.fetchAttempts.Collect(ch)
	c.fetchDuration.Collect(ch)
	c.snapshots.Collect(ch)
	c.suppressed.Collect(ch)
	c.staleResults.Collect(ch)
	c.published.Collect(ch)
	c.droppedMessages.Collect(ch)
	c.sessions.Collect(ch)
}

// -----------------------------------------------------------------------------

// Handler serves the collector from its own registry, alongside the Go
// runtime collectors.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	reg.MustRegister(collectors.NewGoCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------

func (c *Collector) FetchAttempt(source, outcome string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(source, outcome).Inc()
}

func (c *Collector) FetchRun(source string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (c *Collector) Snapshot(source string, status models.SnapshotStatus) {
	if c == nil {
		return
	}
	c.snapshots.WithLabelValues(source, string(status)).Inc()
}

func (c *Collector) Suppressed(source string) {
	if c == nil {
		return
	}
	c.suppressed.WithLabelValues(source).Inc()
}

func (c *Collector) Stale(source string) {
	if c == nil {
		return
	}
	c.staleResults.WithLabelValues(source).Inc()
}

// Published folds every instrument topic into one label value.
func (c *Collector) Published(topic string) {
	if c == nil {
		return
	}
	if strings.HasPrefix(topic, models.InstrumentTopicPrefix) {
		topic = models.InstrumentTopicPrefix + "*"
	}
	c.published.WithLabelValues(topic).Inc()
}

func (c *Collector) Dropped() {
	if c == nil {
		return
	}
	c.droppedMessages.Inc()
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessions.Dec()
}
