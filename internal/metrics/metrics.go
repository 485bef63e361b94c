package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	connectionsActive prometheus.Gauge
	eventsTotal       *prometheus.CounterVec
	errorsTotal       prometheus.Counter
}

// New registers the collectors on the given registerer, so tests can use
// private registries instead of the process-global one.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "live_connections_active",
			Help: "Number of websocket connections currently open",
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "live_events_received_total",
			Help: "Inbound events by event name",
		}, []string{"event"}),

		errorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "live_event_errors_total",
			Help: "Events answered with an error frame",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}

func (m *Metrics) EventReceived(event string) {
	m.eventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) EventFailed() {
	m.errorsTotal.Inc()
}
