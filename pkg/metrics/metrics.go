package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ysv/peatio-core/internal/common/config"
)

// Metrics holds the prometheus instruments exposed by the gateway
type Metrics struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	authResults     *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
}

// New builds a Metrics instance with its own registry
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	connections := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "connections"})
	authResults := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "auth_total"}, []string{"result"})
	eventsConsumed := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_consumed_total"}, []string{"scope"})
	eventsDelivered := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_delivered_total"}, []string{"scope"})
	eventsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_dropped_total"}, []string{"reason"})
	r.MustRegister(connections, authResults, eventsConsumed, eventsDelivered, eventsDropped)

	return &Metrics{
		registry:        r,
		connections:     connections,
		authResults:     authResults,
		eventsConsumed:  eventsConsumed,
		eventsDelivered: eventsDelivered,
		eventsDropped:   eventsDropped,
	}
}

func (m *Metrics) ConnectionOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.connections.Dec()
}

func (m *Metrics) AuthResult(result string) {
	m.authResults.WithLabelValues(result).Inc()
}

func (m *Metrics) EventConsumed(scope string) {
	m.eventsConsumed.WithLabelValues(scope).Inc()
}

func (m *Metrics) EventDelivered(scope string) {
	m.eventsDelivered.WithLabelValues(scope).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	m.eventsDropped.WithLabelValues(reason).Inc()
}

// Handler returns a gin handler serving the /metrics endpoint
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
