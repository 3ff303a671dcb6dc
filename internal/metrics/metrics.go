package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tandem"

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Sent    *prometheus.CounterVec
	Dropped *prometheus.CounterVec
	Invalid prometheus.Counter
}

// Gauges supplies the live values sampled at scrape time.
type Gauges struct {
	Connections func() int
	Rooms       func() int
}

// New creates a private registry with the relay collectors plus the Go and
// process collectors.
func New(g Gauges) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages handed to a connection's outbound queue, by type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages dropped because the recipient was gone or its queue was full, by type.",
		}, []string{"type"}),
		Invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_invalid_total",
			Help:      "Inbound frames that could not be decoded.",
		}),
	}

	reg.MustRegister(
		m.Sent,
		m.Dropped,
		m.Invalid,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live websocket connections.",
		}, func() float64 { return float64(g.Connections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}, func() float64 { return float64(g.Rooms()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
