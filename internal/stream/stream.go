// Package stream implements the stream side of the route attachment
// protocol. An IoStream is observed by its real-time data path under a read
// lock while the routing engine stages, attaches and detaches routes under
// the write lock.
package stream

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/effects"
	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/routing"
)

// Config describes a stream at open time.
type Config struct {
	// ID is generated when empty
	ID        string
	Direction audio.Direction
	Devices   audio.Devices
	Flags     uint32
	// Spec is what the client asked for; zero fields accept anything
	Spec   audio.SampleSpec
	Logger *slog.Logger
}

// IoStream is an open playback or capture stream.
type IoStream struct {
	id        string
	dir       audio.Direction
	flags     uint32
	requested audio.SampleSpec
	logger    *slog.Logger

	mu               sync.RWMutex
	current          *routing.StreamRoute
	next             *routing.StreamRoute
	routeSpec        audio.SampleSpec
	devices          audio.Devices
	effectsRequested effects.Mask
}

var _ routing.Stream = (*IoStream)(nil)

// New creates an unrouted stream.
func New(config Config) *IoStream {
	id := config.ID
	if id == "" {
		id = uuid.New().String()
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.ForService("stream")
	}
	return &IoStream{
		id:        id,
		dir:       config.Direction,
		flags:     config.Flags,
		requested: config.Spec,
		devices:   config.Devices,
		logger:    logger.With("stream_id", id),
	}
}

// ID returns the stream identifier
func (s *IoStream) ID() string { return s.id }

// Direction returns playback or capture
func (s *IoStream) Direction() audio.Direction { return s.dir }

// Flags returns the stream flags matched against route applicable flags
func (s *IoStream) Flags() uint32 { return s.flags }

// RequestedSpec returns the spec the client opened the stream with
func (s *IoStream) RequestedSpec() audio.SampleSpec { return s.requested }

// Devices returns the devices the stream currently targets.
func (s *IoStream) Devices() audio.Devices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices
}

// SetDevices retargets the stream. The next cycle elects a route for the new mask.
func (s *IoStream) SetDevices(devices audio.Devices) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
}

// IsRouted reports whether the stream is attached to a route.
func (s *IoStream) IsRouted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// IsNewRouteAvailable reports whether the engine staged a route for the stream.
func (s *IoStream) IsNewRouteAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next != nil
}

// CurrentStreamRoute returns the attached route or nil
func (s *IoStream) CurrentStreamRoute() *routing.StreamRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// NewStreamRoute returns the staged route or nil
func (s *IoStream) NewStreamRoute() *routing.StreamRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}

// SetNewStreamRoute stages route for the next AttachRoute. Only the engine calls it.
func (s *IoStream) SetNewStreamRoute(route *routing.StreamRoute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = route
}

// ResetNewStreamRoute drops the staged route.
func (s *IoStream) ResetNewStreamRoute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = nil
}

// AttachRoute makes the staged route current and copies its sample spec.
// It fails with ErrNoNewRoute and changes nothing when no route is staged.
func (s *IoStream) AttachRoute() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next == nil {
		return ErrNoNewRoute
	}
	s.current = s.next
	s.routeSpec = s.current.SampleSpec()
	s.logger.Debug("route attached",
		"route", s.current.Name(),
		"spec", s.routeSpec.String())
	return nil
}

// DetachRoute clears the current route. It always succeeds.
func (s *IoStream) DetachRoute() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.logger.Debug("route detached", "route", s.current.Name())
	}
	s.current = nil
	return nil
}

// RouteSampleSpec returns the spec copied at the last attach.
func (s *IoStream) RouteSampleSpec() audio.SampleSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routeSpec
}

// AddRequestedEffect asks for a pre-processing effect
func (s *IoStream) AddRequestedEffect(id effects.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effectsRequested = s.effectsRequested.With(id)
}

// RemoveRequestedEffect withdraws a pre-processing effect
func (s *IoStream) RemoveRequestedEffect(id effects.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effectsRequested = s.effectsRequested.Without(id)
}

// RequestedEffects returns the requested effect mask
func (s *IoStream) RequestedEffects() effects.Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectsRequested
}

// SoftwareEffects returns the requested effects the current route cannot
// run in hardware. An unrouted stream runs every requested effect in software.
func (s *IoStream) SoftwareEffects() effects.Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return s.effectsRequested
	}
	return s.effectsRequested.Minus(s.current.SupportedEffects())
}

// OutputSilencePrologMs returns the silence to render before the first
// frame on the current route, or 0 with a warning when unrouted.
func (s *IoStream) OutputSilencePrologMs() uint32 {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil {
		s.logger.Warn("silence prolog requested on unrouted stream")
		return 0
	}
	return current.OutputSilencePrologMs()
}
