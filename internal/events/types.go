// Package events provides an asynchronous event bus that carries routing
// cycles and errors to consumers without blocking the routing engine.
package events

import (
	"time"
)

// Event is anything the bus can carry. Both *RoutingEvent and the errors
// package's *EnhancedError satisfy it, so the errors package can publish
// without importing this one.
type Event interface {
	// GetComponent returns the component that produced the event
	GetComponent() string

	// GetCategory returns the category used for grouping
	GetCategory() string

	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time

	// GetMessage returns a one line description
	GetMessage() string
}

// EventConsumer processes events delivered by the bus workers
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event
	ProcessEvent(event Event) error
}

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
