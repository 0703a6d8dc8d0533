// Package app assembles the ambient services around a routing platform:
// logging, telemetry, the event bus and the metrics endpoint.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/events"
	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/observability"
	"github.com/tphakala/routemgr/internal/platform"
	"github.com/tphakala/routemgr/internal/routing"
	"github.com/tphakala/routemgr/internal/telemetry"
)

// busShutdownTimeout bounds how long Close waits for queued events
const busShutdownTimeout = 2 * time.Second

// initTelemetry is replaced in tests to keep the global Sentry hub untouched
var (
	defaultInitTelemetry = telemetry.InitSentry
	initTelemetry        = defaultInitTelemetry
)

// App is the running process state shared by the commands.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics
	Bus      *events.EventBus

	endpoint *observability.Endpoint
	closers  []func() error
	logger   *slog.Logger
}

// New configures logging and telemetry, creates the metrics registry and the
// event bus, and starts the metrics endpoint when enabled. Close releases
// everything New started, also after a partial failure.
func New(settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	a := &App{
		Settings: settings,
		Build:    build,
	}

	closeLog, err := logging.Configure(settings.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	a.closers = append(a.closers, closeLog)
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	a.logger = logging.ForService("app")

	flush, err := initTelemetry(settings.Telemetry, build.GetVersion())
	if err != nil {
		// Telemetry is opt-in; a bad DSN must not keep routing down
		a.logger.Warn("telemetry disabled", "error", err)
	} else {
		a.closers = append(a.closers, func() error { flush(); return nil })
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := a.startBus(); err != nil {
		_ = a.Close()
		return nil, err
	}

	if settings.Metrics.Enabled {
		a.endpoint, err = observability.NewEndpoint(settings.Metrics.Listen, a.Metrics)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		a.endpoint.Start()
		a.closers = append(a.closers, a.endpoint.Shutdown)
	}

	a.logger.Info("routemgr started",
		"version", build.GetVersion(),
		"build_date", build.GetBuildDate(),
		"events", a.Bus != nil,
		"metrics", settings.Metrics.Enabled)
	return a, nil
}

func (a *App) startBus() error {
	cfg := a.Settings.Events
	if !cfg.Enabled {
		return nil
	}

	bus, err := events.New(&events.Config{
		Enabled:    true,
		BufferSize: cfg.BufferSize,
		Workers:    cfg.Workers,
		OnDrop:     a.Metrics.Routing.RecordEventDropped,
	})
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := bus.RegisterConsumer(events.NewLogConsumer(logging.ForService("events"))); err != nil {
		_ = bus.Shutdown(busShutdownTimeout)
		return fmt.Errorf("failed to register event consumer: %w", err)
	}
	if cfg.LogPath != "" {
		if err := a.registerJournal(bus, cfg.LogPath); err != nil {
			_ = bus.Shutdown(busShutdownTimeout)
			return err
		}
	}

	errors.SetEventPublisher(bus)
	a.Bus = bus
	a.closers = append(a.closers, func() error {
		errors.SetEventPublisher(nil)
		return bus.Shutdown(busShutdownTimeout)
	})
	return nil
}

// registerJournal adds a consumer writing every event as JSON to path,
// rotated the same way as the main log file.
func (a *App) registerJournal(bus *events.EventBus, path string) error {
	journal, closeJournal, err := logging.NewFileLogger(conf.LogConfig{
		Path:     path,
		Rotation: a.Settings.Log.Rotation,
		MaxSize:  a.Settings.Log.MaxSize,
	}, "events", slog.LevelInfo)
	if err != nil {
		return fmt.Errorf("failed to open event journal: %w", err)
	}
	if err := bus.RegisterConsumer(events.NewNamedLogConsumer("journal", journal)); err != nil {
		_ = closeJournal()
		return fmt.Errorf("failed to register event journal: %w", err)
	}
	// closers run in reverse, so the bus drains before the file closes
	a.closers = append(a.closers, closeJournal)
	a.logger.Info("event journal enabled", "path", path)
	return nil
}

// NewPlatform builds the configured platform wired to the app's metrics and
// event bus. exec receives the stages after the platform; nil keeps them in
// the platform.
func (a *App) NewPlatform(exec routing.Executor) (*platform.Platform, error) {
	cfg := platform.Config{
		Metrics:  a.Metrics.Routing,
		Executor: exec,
		Logger:   logging.ForService("platform"),
	}
	// A nil *EventBus in the interface would not compare equal to nil
	if a.Bus != nil {
		cfg.Publisher = a.Bus
	}
	return platform.New(&a.Settings.Platform, cfg)
}

// MetricsAddr returns the bound metrics address, or "" when disabled
func (a *App) MetricsAddr() string {
	if a.endpoint == nil {
		return ""
	}
	return a.endpoint.Addr()
}

// Close stops the services in reverse start order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
