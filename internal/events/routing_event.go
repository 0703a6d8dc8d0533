package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/routemgr/internal/audio"
)

// RoutingEvent describes one reconsideration cycle that changed something.
type RoutingEvent struct {
	Cycle uint64

	Enabled  []string
	Disabled []string
	Reflow   []string
	Repath   []string
	Attached []string
	Detached []string

	OpenedMask  [audio.NumDirections]uint32
	ClosingMask [audio.NumDirections]uint32

	Duration  time.Duration
	Timestamp time.Time

	// Err holds the joined stage errors, if any
	Err error
}

// GetComponent returns "routing"
func (e *RoutingEvent) GetComponent() string { return "routing" }

// GetCategory returns "routing", or "routing-error" when a stage failed
func (e *RoutingEvent) GetCategory() string {
	if e.Err != nil {
		return "routing-error"
	}
	return "routing"
}

// GetTimestamp returns when the cycle finished
func (e *RoutingEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetMessage summarises the cycle
func (e *RoutingEvent) GetMessage() string {
	var parts []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			parts = append(parts, label+"="+strings.Join(items, ","))
		}
	}
	add("enabled", e.Enabled)
	add("disabled", e.Disabled)
	add("reflow", e.Reflow)
	add("repath", e.Repath)
	add("attached", e.Attached)
	add("detached", e.Detached)
	if len(parts) == 0 {
		parts = append(parts, "no change")
	}
	msg := fmt.Sprintf("cycle %d: %s", e.Cycle, strings.Join(parts, " "))
	if e.Err != nil {
		msg += " error=" + e.Err.Error()
	}
	return msg
}
