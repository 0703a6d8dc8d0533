package events

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/errors"
)

// mockConsumer implements EventConsumer for testing
type mockConsumer struct {
	name           string
	processedCount atomic.Int32
	errorOnProcess bool
	panicOnProcess bool
	block          chan struct{}
	mu             sync.Mutex
	events         []Event
}

func (m *mockConsumer) Name() string { return m.name }

func (m *mockConsumer) ProcessEvent(event Event) error {
	if m.block != nil {
		<-m.block
	}
	if m.panicOnProcess {
		panic("consumer exploded")
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.processedCount.Add(1)

	if m.errorOnProcess {
		return fmt.Errorf("mock error")
	}
	return nil
}

func (m *mockConsumer) GetEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return events
}

// waitForProcessed waits for the consumer to process n events or times out
func waitForProcessed(t *testing.T, consumer *mockConsumer, expected int32, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			require.Failf(t, "timeout waiting for events", "expected %d events, got %d", expected, consumer.processedCount.Load())
		case <-ticker.C:
			if consumer.processedCount.Load() >= expected {
				return
			}
		}
	}
}

func newTestBus(t *testing.T, bufferSize, workers int, onDrop func()) *EventBus {
	t.Helper()
	eb, err := New(&Config{BufferSize: bufferSize, Workers: workers, Enabled: true, OnDrop: onDrop})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eb.Shutdown(time.Second) })
	return eb
}

func TestNewRejectsDisabledAndInvalidConfig(t *testing.T) {
	t.Parallel()

	eb, err := New(&Config{Enabled: false})
	require.ErrorIs(t, err, ErrEventBusDisabled)
	assert.Nil(t, eb)

	_, err = New(&Config{Enabled: true, BufferSize: 0, Workers: 1})
	assert.Error(t, err)
}

func TestPublishWithoutConsumersIsDropped(t *testing.T) {
	t.Parallel()

	eb := newTestBus(t, 4, 1, nil)
	assert.False(t, eb.Publish(&RoutingEvent{Cycle: 1}), "no workers run before the first consumer")

	var nilBus *EventBus
	assert.False(t, nilBus.Publish(&RoutingEvent{}))
}

func TestPublishDeliversToAllConsumers(t *testing.T) {
	t.Parallel()

	eb := newTestBus(t, 16, 2, nil)
	first := &mockConsumer{name: "first"}
	second := &mockConsumer{name: "second"}
	require.NoError(t, eb.RegisterConsumer(first))
	require.NoError(t, eb.RegisterConsumer(second))
	require.Error(t, eb.RegisterConsumer(&mockConsumer{name: "first"}), "duplicate names are rejected")

	for i := range 5 {
		require.True(t, eb.Publish(&RoutingEvent{Cycle: uint64(i)}))
	}

	waitForProcessed(t, first, 5, time.Second)
	waitForProcessed(t, second, 5, time.Second)

	stats := eb.GetStats()
	assert.Equal(t, uint64(5), stats.EventsReceived)
	assert.Equal(t, uint64(10), stats.EventsProcessed)
	assert.Zero(t, stats.EventsDropped)
}

func TestTryPublishAcceptsOnlyEvents(t *testing.T) {
	t.Parallel()

	eb := newTestBus(t, 4, 1, nil)
	consumer := &mockConsumer{name: "c"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	assert.False(t, eb.TryPublish("not an event"))

	enhanced := errors.Newf("pcm open failed").Category(errors.CategoryDevice).Build()
	assert.True(t, eb.TryPublish(enhanced))
	waitForProcessed(t, consumer, 1, time.Second)
	assert.Equal(t, "audio-device", consumer.GetEvents()[0].GetCategory())
}

func TestFullBufferDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	var dropped atomic.Int32
	eb := newTestBus(t, 1, 1, func() { dropped.Add(1) })

	block := make(chan struct{})
	consumer := &mockConsumer{name: "slow", block: block}
	require.NoError(t, eb.RegisterConsumer(consumer))

	// One event is held by the worker, one sits in the buffer, the rest drop
	accepted := 0
	for i := range 10 {
		if eb.Publish(&RoutingEvent{Cycle: uint64(i)}) {
			accepted++
		}
	}
	close(block)

	assert.LessOrEqual(t, accepted, 2)
	assert.Equal(t, int32(10-accepted), dropped.Load())
	assert.Equal(t, uint64(10-accepted), eb.GetStats().EventsDropped)
	waitForProcessed(t, consumer, int32(accepted), time.Second)
}

func TestConsumerErrorsAndPanicsAreCounted(t *testing.T) {
	t.Parallel()

	eb := newTestBus(t, 4, 1, nil)
	failing := &mockConsumer{name: "failing", errorOnProcess: true}
	panicking := &mockConsumer{name: "panicking", panicOnProcess: true}
	require.NoError(t, eb.RegisterConsumer(failing))
	require.NoError(t, eb.RegisterConsumer(panicking))

	require.True(t, eb.Publish(&RoutingEvent{Cycle: 1}))
	waitForProcessed(t, failing, 1, time.Second)

	require.Eventually(t, func() bool {
		return eb.GetStats().ConsumerErrors == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRoutingEventMessage(t *testing.T) {
	t.Parallel()

	e := &RoutingEvent{Cycle: 3, Enabled: []string{"a", "b"}, Repath: []string{"c"}}
	assert.Equal(t, "cycle 3: enabled=a,b repath=c", e.GetMessage())
	assert.Equal(t, "routing", e.GetCategory())

	e = &RoutingEvent{Cycle: 4, Err: fmt.Errorf("mute failed")}
	assert.Equal(t, "cycle 4: no change error=mute failed", e.GetMessage())
	assert.Equal(t, "routing-error", e.GetCategory())
}

func TestLogConsumer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewLogConsumer(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Equal(t, "log", c.Name())

	require.NoError(t, c.ProcessEvent(&RoutingEvent{Cycle: 7, Disabled: []string{"hdmi_out"}}))
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "disabled=hdmi_out")

	buf.Reset()
	require.NoError(t, c.ProcessEvent(errors.Newf("boom").Category(errors.CategoryRouting).Build()))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "category=routing")
}

func TestNamedLogConsumersShareABus(t *testing.T) {
	t.Parallel()

	eb, err := New(&Config{Enabled: true, BufferSize: 4, Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eb.Shutdown(time.Second) })

	require.NoError(t, eb.RegisterConsumer(NewLogConsumer(slog.New(slog.DiscardHandler))))
	journal := NewNamedLogConsumer("journal", slog.New(slog.DiscardHandler))
	assert.Equal(t, "journal", journal.Name())
	require.NoError(t, eb.RegisterConsumer(journal))
	assert.Error(t, eb.RegisterConsumer(NewNamedLogConsumer("journal", nil)))
}
