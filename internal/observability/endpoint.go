package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tphakala/routemgr/internal/logging"
)

// ShutdownTimeout bounds how long Shutdown waits for in-flight scrapes
const ShutdownTimeout = 5 * time.Second

// Endpoint serves /metrics over HTTP.
type Endpoint struct {
	server   *http.Server
	listener net.Listener
	metrics  *Metrics
	done     chan struct{}
	logger   *slog.Logger
}

// NewEndpoint binds listen and prepares the server. Use "127.0.0.1:0" for
// an ephemeral port; Addr reports the bound address.
func NewEndpoint(listen string, metrics *Metrics) (*Endpoint, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	metrics.RegisterHandlers(mux)

	return &Endpoint{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		metrics:  metrics,
		done:     make(chan struct{}),
		logger:   logging.ForService("metrics"),
	}, nil
}

// Addr returns the address the endpoint listens on
func (e *Endpoint) Addr() string { return e.listener.Addr().String() }

// Start serves in a background goroutine until Shutdown.
func (e *Endpoint) Start() {
	go func() {
		defer close(e.done)
		e.logger.Info("metrics endpoint starting", "address", e.Addr())
		if err := e.server.Serve(e.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully and waits for the serve goroutine.
func (e *Endpoint) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	e.logger.Info("stopping metrics endpoint")
	err := e.server.Shutdown(ctx)
	<-e.done
	return err
}

// GetMetrics returns the Metrics instance served by this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
