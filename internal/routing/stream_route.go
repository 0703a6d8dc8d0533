package routing

import (
	"slices"
	"sync"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/device"
)

// Capabilities lists what a stream route accepts. An empty list accepts anything.
type Capabilities struct {
	Rates        []uint32
	Formats      []audio.Format
	ChannelMasks []audio.ChannelMask
}

// StreamRouteConfig is the PCM configuration of a stream route.
type StreamRouteConfig struct {
	Card              uint32
	Device            uint32
	SampleSpec        audio.SampleSpec
	PeriodSize        uint32
	PeriodCount       uint32
	SilencePrologMs   uint32
	ApplicableDevices audio.Devices
	ApplicableFlags   uint32
	Capabilities      Capabilities
}

// Stream is an open audio stream the manager can elect onto a stream route.
// Implementations guard IsRouted, AttachRoute and DetachRoute with their own lock.
type Stream interface {
	ID() string
	Direction() audio.Direction
	Devices() audio.Devices
	Flags() uint32
	RequestedSpec() audio.SampleSpec

	IsRouted() bool
	CurrentStreamRoute() *StreamRoute
	NewStreamRoute() *StreamRoute
	SetNewStreamRoute(route *StreamRoute)
	ResetNewStreamRoute()
	AttachRoute() error
	DetachRoute() error
}

// StreamRoute is a route that owns a PCM device. Streams hold pointers to it
// but never own it.
type StreamRoute struct {
	*Route

	mu       sync.RWMutex
	config   StreamRouteConfig
	device   device.Device
	attached Stream

	// stale is set when the config changed while the device was open; the
	// device is rebuilt before it is opened again
	stale bool
}

// Config returns a copy of the PCM configuration.
func (s *StreamRoute) Config() StreamRouteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SampleSpec returns the spec streams get when they attach.
func (s *StreamRoute) SampleSpec() audio.SampleSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.SampleSpec
}

// OutputSilencePrologMs returns how much silence to write after opening.
func (s *StreamRoute) OutputSilencePrologMs() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.SilencePrologMs
}

// Device returns the PCM device handle. The route keeps ownership.
func (s *StreamRoute) Device() device.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// AttachedStream returns the stream attached by the last cycle, or nil.
func (s *StreamRoute) AttachedStream() Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached
}

func (s *StreamRoute) setAttached(stream Stream) {
	s.mu.Lock()
	s.attached = stream
	s.mu.Unlock()
}

func (s *StreamRoute) setConfig(config StreamRouteConfig, dev device.Device) {
	s.mu.Lock()
	s.config = config
	if dev != nil {
		s.device = dev
		s.stale = false
	} else {
		s.stale = true
	}
	s.mu.Unlock()
}

func (s *StreamRoute) isStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *StreamRoute) setDevice(dev device.Device) {
	s.mu.Lock()
	s.device = dev
	s.stale = false
	s.mu.Unlock()
}

// Supports reports whether the route can carry spec. Zero fields of spec are
// treated as "any".
func (s *StreamRoute) Supports(spec audio.SampleSpec) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps := s.config.Capabilities
	if spec.Rate != 0 && len(caps.Rates) > 0 && !slices.Contains(caps.Rates, spec.Rate) {
		return false
	}
	if spec.Format != audio.FormatInvalid && len(caps.Formats) > 0 && !slices.Contains(caps.Formats, spec.Format) {
		return false
	}
	if spec.Channels != audio.ChannelInvalid && len(caps.ChannelMasks) > 0 && !slices.Contains(caps.ChannelMasks, spec.Channels) {
		return false
	}
	return true
}

// IsMatchingWithStream reports whether stream may be elected onto the route.
func (s *StreamRoute) IsMatchingWithStream(stream Stream) bool {
	if stream.Direction() != s.dir {
		return false
	}

	s.mu.RLock()
	devices := s.config.ApplicableDevices
	flags := s.config.ApplicableFlags
	s.mu.RUnlock()

	if !stream.Devices().Intersects(devices) {
		return false
	}
	if stream.Flags()&flags != flags {
		return false
	}
	return s.Supports(stream.RequestedSpec())
}
