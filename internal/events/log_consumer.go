package events

import (
	"log/slog"

	"github.com/tphakala/routemgr/internal/logging"
)

// LogConsumer writes every event through a logger.
type LogConsumer struct {
	name   string
	logger *slog.Logger
}

// NewLogConsumer returns a consumer logging through logger, or through the
// "routing" service logger when logger is nil.
func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = logging.ForService("routing")
	}
	return &LogConsumer{name: "log", logger: logger}
}

// NewNamedLogConsumer returns a log consumer registered under name, so more
// than one can share a bus.
func NewNamedLogConsumer(name string, logger *slog.Logger) *LogConsumer {
	c := NewLogConsumer(logger)
	c.name = name
	return c
}

// Name returns the consumer name, "log" unless set otherwise
func (c *LogConsumer) Name() string { return c.name }

// ProcessEvent logs the event. Routing cycles log at info, failed cycles and
// errors at error.
func (c *LogConsumer) ProcessEvent(event Event) error {
	switch e := event.(type) {
	case *RoutingEvent:
		attrs := []any{
			"cycle", e.Cycle,
			"duration", e.Duration,
			"opened_playback", e.OpenedMask[0],
			"opened_capture", e.OpenedMask[1],
		}
		if e.Err != nil {
			c.logger.Error(e.GetMessage(), append(attrs, "error", e.Err)...)
			return nil
		}
		c.logger.Info(e.GetMessage(), attrs...)
	default:
		c.logger.Error(event.GetMessage(),
			"component", event.GetComponent(),
			"category", event.GetCategory(),
		)
	}
	return nil
}
