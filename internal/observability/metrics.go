// Package observability exposes the routing metrics over a Prometheus endpoint.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Routing  *metrics.RoutingMetrics
}

// NewMetrics creates a registry with the process and Go runtime collectors
// and the routing metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	routingMetrics, err := metrics.NewRoutingMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create routing metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Routing:  routingMetrics,
	}, nil
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(logging.ForService("metrics").Handler(), slog.LevelError),
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
