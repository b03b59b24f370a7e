package prometheus

import (
	"net/http"
	"strconv"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glive"

// Metrics exports the continuity lifecycle on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ClosesTotal       *prometheus.CounterVec
	ReconnectsTotal   *prometheus.CounterVec
	SummariesTotal    *prometheus.CounterVec
	TranscriptsTotal  *prometheus.CounterVec
}

var _ ports.Metrics = (*Metrics)(nil)

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections_active",
			Help:      "Live connections currently open",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_connections_total",
			Help:      "Live connections that completed the setup handshake",
		}),
		ClosesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_closes_total",
			Help:      "Live connection closes by classification",
		}, []string{"kind"}),
		ReconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled, by attempt number",
		}, []string{"attempt"}),
		SummariesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarization runs by outcome",
		}, []string{"outcome"}),
		TranscriptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_recorded_total",
			Help:      "Transcript writes by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionEstablished() {
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) ConnectionClosed(kind domain.CloseKind) {
	m.ConnectionsActive.Dec()
	m.ClosesTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ReconnectScheduled(attempt int) {
	m.ReconnectsTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func (m *Metrics) SummarizationFinished(outcome string) {
	m.SummariesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TranscriptRecorded(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.TranscriptsTotal.WithLabelValues(result).Inc()
}
