package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors. Each server owns its registry so
// several servers can live in one test binary.
type Metrics struct {
	registry *prometheus.Registry

	Turns       *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Started     prometheus.Counter
	Expired     prometheus.Counter
	Connections prometheus.Gauge
}

func newMetrics(liveSessions func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringside_actions_total",
				Help: "Accepted actions by kind",
			},
			[]string{"kind"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringside_rejections_total",
				Help: "Rejected requests by error code",
			},
			[]string{"code"},
		),
		Started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringside_matches_started_total",
			Help: "Matches opened with start",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringside_matches_expired_total",
			Help: "Matches closed by the idle reaper",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ringside_connections",
			Help: "Open websocket connections",
		}),
	}

	m.registry.MustRegister(
		m.Turns,
		m.Rejections,
		m.Started,
		m.Expired,
		m.Connections,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ringside_sessions",
			Help: "Matches currently held in the registry",
		}, liveSessions),
	)
	return m
}

// Handler exposes the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
