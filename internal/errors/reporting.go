// Package errors - telemetry and event publishing hooks
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// EventPublisher publishes errors without importing the events package
type EventPublisher interface {
	TryPublish(event any) bool
}

var (
	globalTelemetryReporter atomic.Pointer[TelemetryReporter]
	globalEventPublisher    atomic.Pointer[EventPublisher]
)

// SetTelemetryReporter sets the global telemetry reporter; nil disables reporting
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
	} else {
		globalTelemetryReporter.Store(&reporter)
	}
	refreshReporting()
}

// SetEventPublisher sets the global event publisher; nil disables publishing
func SetEventPublisher(publisher EventPublisher) {
	if publisher == nil {
		globalEventPublisher.Store(nil)
	} else {
		globalEventPublisher.Store(&publisher)
	}
	refreshReporting()
}

func refreshReporting() {
	hasActiveReporting.Store(globalTelemetryReporter.Load() != nil || globalEventPublisher.Load() != nil)
}

// report forwards a freshly built error to the event bus and telemetry
func report(ee *EnhancedError) {
	if p := globalEventPublisher.Load(); p != nil && *p != nil {
		(*p).TryPublish(ee)
	}
	if r := globalTelemetryReporter.Load(); r != nil && *r != nil && (*r).IsEnabled() {
		(*r).ReportError(ee)
	}
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	title := errorTitle(ee)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = sentryLevel(ee.Category)
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// errorTitle builds "Component Category Operation" for grouping
func errorTitle(ee *EnhancedError) string {
	parts := []string{ee.GetComponent(), string(ee.Category)}
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		parts = append(parts, strings.ReplaceAll(op, "_", " "))
	}
	return strings.Join(parts, " ")
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryContention, CategoryConfiguration:
		return sentry.LevelError
	case CategoryDevice, CategoryStream:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	deviceNodePattern = regexp.MustCompile(`/dev/snd/\S+`)
	hexIDPattern      = regexp.MustCompile(`[0-9a-fA-F]{32,}`)
)

// scrubMessage removes host specific identifiers before sending telemetry
func scrubMessage(message string) string {
	message = deviceNodePattern.ReplaceAllString(message, "[DEVICE_NODE]")
	return hexIDPattern.ReplaceAllString(message, "[ID_REDACTED]")
}
