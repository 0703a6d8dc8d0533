// Package metrics provides prometheus metrics for the routing engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition labels for route state changes
const (
	TransitionEnabled  = "enabled"
	TransitionDisabled = "disabled"
	TransitionReflow   = "reflow"
	TransitionRepath   = "repath"
)

// Status labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RoutingMetrics contains Prometheus metrics for routing reconsideration
type RoutingMetrics struct {
	registry *prometheus.Registry

	reconsiderTotal      *prometheus.CounterVec
	reconsiderDuration   prometheus.Histogram
	routesUsed           *prometheus.GaugeVec
	routeTransitions     *prometheus.CounterVec
	streamAttach         *prometheus.CounterVec
	configErrors         *prometheus.CounterVec
	contentionViolations prometheus.Counter
	eventsDropped        prometheus.Counter

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewRoutingMetrics creates and registers new routing metrics
func NewRoutingMetrics(registry *prometheus.Registry) (*RoutingMetrics, error) {
	m := &RoutingMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *RoutingMetrics) initMetrics() {
	m.reconsiderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routemgr_reconsider_total",
			Help: "Total number of routing reconsideration cycles",
		},
		[]string{"result"}, // changed, unchanged, error
	)

	m.reconsiderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routemgr_reconsider_duration_seconds",
			Help:    "Time taken by one reconsideration cycle including stage execution",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		},
	)

	m.routesUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "routemgr_routes_used",
			Help: "Number of routes in use after the last cycle",
		},
		[]string{"direction"},
	)

	m.routeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routemgr_route_transitions_total",
			Help: "Route state transitions by kind",
		},
		[]string{"route", "transition"},
	)

	m.streamAttach = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routemgr_stream_attach_total",
			Help: "Stream attach attempts by outcome",
		},
		[]string{"status"},
	)

	m.configErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routemgr_config_errors_total",
			Help: "Configuration directives ignored because they referenced unknown objects",
		},
		[]string{"kind"},
	)

	m.contentionViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "routemgr_contention_violations_total",
			Help: "Cycles that ended with two used ports in one port group",
		},
	)

	m.eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "routemgr_events_dropped_total",
			Help: "Routing events dropped because the event bus was full",
		},
	)

	m.collectors = []prometheus.Collector{
		m.reconsiderTotal,
		m.reconsiderDuration,
		m.routesUsed,
		m.routeTransitions,
		m.streamAttach,
		m.configErrors,
		m.contentionViolations,
		m.eventsDropped,
	}
}

// Describe implements the Collector interface
func (m *RoutingMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *RoutingMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordReconsider records one cycle and its duration
func (m *RoutingMetrics) RecordReconsider(result string, duration time.Duration) {
	m.reconsiderTotal.WithLabelValues(result).Inc()
	m.reconsiderDuration.Observe(duration.Seconds())
}

// SetRoutesUsed sets the number of used routes for a direction
func (m *RoutingMetrics) SetRoutesUsed(direction string, count int) {
	m.routesUsed.WithLabelValues(direction).Set(float64(count))
}

// RecordRouteTransition records a route state transition
func (m *RoutingMetrics) RecordRouteTransition(route, transition string) {
	m.routeTransitions.WithLabelValues(route, transition).Inc()
}

// RecordStreamAttach records the outcome of a stream attach
func (m *RoutingMetrics) RecordStreamAttach(status string) {
	m.streamAttach.WithLabelValues(status).Inc()
}

// RecordConfigError records an ignored configuration directive
func (m *RoutingMetrics) RecordConfigError(kind string) {
	m.configErrors.WithLabelValues(kind).Inc()
}

// RecordContentionViolation records a broken port group exclusivity
func (m *RoutingMetrics) RecordContentionViolation() {
	m.contentionViolations.Inc()
}

// RecordEventDropped records a routing event the bus could not accept
func (m *RoutingMetrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}

// ConfigErrors returns the counter of ignored directives of one kind
func (m *RoutingMetrics) ConfigErrors(kind string) prometheus.Counter {
	return m.configErrors.WithLabelValues(kind)
}

// StreamAttach returns the counter of stream attaches with status
func (m *RoutingMetrics) StreamAttach(status string) prometheus.Counter {
	return m.streamAttach.WithLabelValues(status)
}

// Reconsiders returns the counter of cycles with result
func (m *RoutingMetrics) Reconsiders(result string) prometheus.Counter {
	return m.reconsiderTotal.WithLabelValues(result)
}
