// Package telemetry wires opt-in Sentry error reporting into the errors package.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/logging"
)

// flushTimeout bounds how long shutdown waits for queued events
const flushTimeout = 2 * time.Second

// InitSentry initialises the Sentry SDK when telemetry is enabled and installs
// the errors package reporter. The returned function flushes pending events
// and uninstalls the reporter; it is safe to call when telemetry is disabled.
func InitSentry(settings conf.TelemetrySettings, release string) (func(), error) {
	return initSentry(settings, release, nil)
}

func initSentry(settings conf.TelemetrySettings, release string, transport sentry.Transport) (func(), error) {
	logger := logging.ForService("telemetry")
	if !settings.Enabled {
		logger.Debug("sentry telemetry is disabled (opt-in required)")
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.DSN,
		SampleRate: 1.0,
		Debug:      false,

		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("routemgr@%s", release),
		Transport:        transport,

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Info("sentry telemetry enabled", "release", release)

	return func() {
		errors.SetTelemetryReporter(nil)
		sentry.Flush(flushTimeout)
	}, nil
}

// applyPrivacyFilters strips host identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
