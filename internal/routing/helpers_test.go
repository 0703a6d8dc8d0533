package routing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/audio"
)

// fakeStream is a minimal Stream for election tests
type fakeStream struct {
	id      string
	dir     audio.Direction
	devices audio.Devices
	flags   uint32
	spec    audio.SampleSpec

	mu        sync.Mutex
	current   *StreamRoute
	next      *StreamRoute
	attachErr error
	attaches  int
	detaches  int
}

func (s *fakeStream) ID() string                      { return s.id }
func (s *fakeStream) Direction() audio.Direction      { return s.dir }
func (s *fakeStream) Devices() audio.Devices          { return s.devices }
func (s *fakeStream) Flags() uint32                   { return s.flags }
func (s *fakeStream) RequestedSpec() audio.SampleSpec { return s.spec }

func (s *fakeStream) IsRouted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *fakeStream) CurrentStreamRoute() *StreamRoute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *fakeStream) NewStreamRoute() *StreamRoute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *fakeStream) SetNewStreamRoute(route *StreamRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = route
}

func (s *fakeStream) ResetNewStreamRoute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = nil
}

func (s *fakeStream) AttachRoute() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attachErr != nil {
		return s.attachErr
	}
	if s.next == nil {
		return fmt.Errorf("no new route")
	}
	s.current = s.next
	s.attaches++
	return nil
}

func (s *fakeStream) DetachRoute() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.detaches++
	return nil
}

// recordingExecutor records the stage calls in order
type recordingExecutor struct {
	calls         []string
	plans         []*Plan
	failMute      error
	failConfigure error
}

func (e *recordingExecutor) Mute(_ context.Context, routes []string) error {
	e.calls = append(e.calls, fmt.Sprintf("mute%v", routes))
	return e.failMute
}

func (e *recordingExecutor) Configure(_ context.Context, plan *Plan) error {
	e.calls = append(e.calls, "configure")
	e.plans = append(e.plans, plan)
	return e.failConfigure
}

func (e *recordingExecutor) Unmute(_ context.Context, routes []string) error {
	e.calls = append(e.calls, fmt.Sprintf("unmute%v", routes))
	return nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) TryPublish(event any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return true
}

var stereo48k = audio.SampleSpec{Rate: 48000, Format: audio.FormatPCM16, Channels: audio.ChannelStereo}

// newBusTopology builds two ports on one group with a route on each
func newBusTopology(t *testing.T, config Config) *Manager {
	t.Helper()
	config.StrictContention = true
	m := NewManager(config)

	for _, p := range []string{"ssp0", "ssp1", "modem"} {
		_, err := m.AddPort(p)
		require.NoError(t, err)
	}
	require.NoError(t, m.AddPortGroup("i2s_bus", "ssp0"))
	require.NoError(t, m.AddPortGroup("i2s_bus", "ssp1"))

	_, err := m.AddRoute("a", "ssp0", "", audio.Output)
	require.NoError(t, err)
	_, err = m.AddRoute("b", "ssp1", "", audio.Output)
	require.NoError(t, err)
	return m
}

func mustRoute(t *testing.T, m *Manager, name string) *Route {
	t.Helper()
	r, ok := m.Route(name)
	require.True(t, ok, "route %s", name)
	return r
}

func mustPort(t *testing.T, m *Manager, name string) *Port {
	t.Helper()
	p, ok := m.Port(name)
	require.True(t, ok, "port %s", name)
	return p
}
