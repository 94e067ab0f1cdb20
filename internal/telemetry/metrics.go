// Package telemetry holds the Prometheus collectors and the OpenTelemetry
// tracer provider used across emotewall.
package telemetry

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/emotewall/pkg/emote"
)

const namespace = "emotewall"

// Metrics records wall activity twice: in Prometheus collectors for
// scraping, and in atomic counters for the /status snapshot.
type Metrics struct {
	registry *prometheus.Registry

	messages      prometheus.Counter
	spawned       *prometheus.CounterVec
	catalogLoads  *prometheus.CounterVec
	catalogEmotes *prometheus.GaugeVec

	messageCount  atomic.Int64
	spawnCount    atomic.Int64
	loadFailures  atomic.Int64
	droppedFrames atomic.Int64
	droppedMetric prometheus.Counter
}

// NewMetrics creates a Metrics with its own registry, so several instances
// can coexist in tests.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages received from all channels.",
		}),
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotes_spawned_total",
			Help:      "Emote instances spawned on the wall.",
		}, []string{"provider"}),
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog fetches by provider, kind and result.",
		}, []string{"provider", "kind", "result"}),
		catalogEmotes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_emotes",
			Help:      "Emotes returned by the most recent successful fetch.",
		}, []string{"provider", "kind"}),
		droppedMetric: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_frames_dropped_total",
			Help:      "Frames not delivered to a slow overlay client.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages, m.spawned, m.catalogLoads, m.catalogEmotes, m.droppedMetric,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// RecordMessage counts one inbound chat message.
func (m *Metrics) RecordMessage() {
	m.messages.Inc()
	m.messageCount.Add(1)
}

// EmoteSpawned counts one spawned instance.
func (m *Metrics) EmoteSpawned(d emote.Data) {
	m.spawned.WithLabelValues(string(d.Provider)).Inc()
	m.spawnCount.Add(1)
}

// CatalogLoaded records one catalog fetch.
func (m *Metrics) CatalogLoaded(provider, kind string, count int, err error) {
	if err != nil {
		m.catalogLoads.WithLabelValues(provider, kind, "error").Inc()
		m.loadFailures.Add(1)
		return
	}
	m.catalogLoads.WithLabelValues(provider, kind, "ok").Inc()
	m.catalogEmotes.WithLabelValues(provider, kind).Set(float64(count))
}

// FrameDropped counts one frame skipped for a slow overlay client.
func (m *Metrics) FrameDropped() {
	m.droppedMetric.Inc()
	m.droppedFrames.Add(1)
}

// Snapshot returns a point-in-time view of the counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Messages:      m.messageCount.Load(),
		Spawned:       m.spawnCount.Load(),
		LoadFailures:  m.loadFailures.Load(),
		DroppedFrames: m.droppedFrames.Load(),
	}
}

// Snapshot is a serializable point-in-time metrics view.
type Snapshot struct {
	Messages      int64 `json:"messages"`
	Spawned       int64 `json:"spawned"`
	LoadFailures  int64 `json:"catalog_load_failures"`
	DroppedFrames int64 `json:"dropped_frames"`
}
