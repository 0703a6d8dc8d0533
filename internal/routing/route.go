package routing

import (
	"sync/atomic"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/effects"
)

// RouteID is the arena index of a route.
type RouteID int

// Stage is a reconfiguration request on a route.
type Stage uint8

const (
	// StageFlow asks for a mute, reconfigure, unmute sequence
	StageFlow Stage = 1 << iota
	// StagePath asks for a full close and reopen
	StagePath
)

const (
	portSource = iota
	portDest
	numPorts
)

// Route is a logical audio path in one direction over up to two ports.
//
// The identity accessors (Name, ID, Direction, Mask, Source, Destination)
// and SupportedEffects are safe from any goroutine. The availability and
// stage accessors read state that Reconsider rewrites under the manager
// lock: they are consistent only in an Executor callback or while no cycle
// runs. Other goroutines should read Manager.Snapshot instead.
type Route struct {
	id    RouteID
	name  string
	dir   audio.Direction
	mask  uint32
	ports [numPorts]PortID

	applicable     bool
	used           bool
	previouslyUsed bool
	blocked        bool
	stages         Stage

	// supportedEffects is read from stream goroutines outside the manager lock
	supportedEffects atomic.Uint32

	// stream is set for stream routes only
	stream *StreamRoute
}

func newRoute(id RouteID, name string, dir audio.Direction, mask uint32) *Route {
	return &Route{
		id:    id,
		name:  name,
		dir:   dir,
		mask:  mask,
		ports: [numPorts]PortID{noPort, noPort},
	}
}

// Name returns the route name
func (r *Route) Name() string { return r.name }

// ID returns the arena handle of the route
func (r *Route) ID() RouteID { return r.id }

// Direction returns whether the route carries playback or capture
func (r *Route) Direction() audio.Direction { return r.dir }

// Mask returns the bit identifying the route within its direction.
func (r *Route) Mask() uint32 { return r.mask }

// Source returns the first port, or -1.
func (r *Route) Source() PortID { return r.ports[portSource] }

// Destination returns the second port, or -1.
func (r *Route) Destination() PortID { return r.ports[portDest] }

// addPort fills the source slot first, then the destination slot.
func (r *Route) addPort(port PortID) {
	if r.ports[portSource] == noPort {
		r.ports[portSource] = port
		return
	}
	r.ports[portDest] = port
}

// Available reports whether the route is neither blocked nor used.
func (r *Route) Available() bool { return !r.blocked && !r.used }

// IsApplicable reports whether prepare would mark the route used.
func (r *Route) IsApplicable() bool { return !r.blocked && !r.used && r.applicable }

// IsUsed reports whether the route is used after this cycle.
func (r *Route) IsUsed() bool { return r.used }

// PreviouslyUsed reports whether the route was used before this cycle.
func (r *Route) PreviouslyUsed() bool { return r.previouslyUsed }

// IsBlocked reports whether a port of the route was blocked this cycle.
func (r *Route) IsBlocked() bool { return r.blocked }

// Applicable returns the flag last set by the platform.
func (r *Route) Applicable() bool { return r.applicable }

// NeedReflow reports whether the route stays used and must be muted,
// reconfigured and unmuted.
func (r *Route) NeedReflow() bool {
	return r.previouslyUsed && r.used && r.stages&(StageFlow|StagePath) != 0
}

// NeedRepath reports whether the route stays used and must be closed and
// reopened. NeedRepath implies NeedReflow.
func (r *Route) NeedRepath() bool {
	return r.previouslyUsed && r.used && r.stages&StagePath != 0
}

// IsStreamRoute reports whether the route carries a PCM device.
func (r *Route) IsStreamRoute() bool { return r.stream != nil }

// AsStreamRoute returns the stream route view of r.
func (r *Route) AsStreamRoute() (*StreamRoute, bool) {
	return r.stream, r.stream != nil
}

// SupportedEffects returns the effects the route runs in hardware.
func (r *Route) SupportedEffects() effects.Mask {
	return effects.Mask(r.supportedEffects.Load())
}

// addSupportedEffect is called with the manager lock held.
func (r *Route) addSupportedEffect(id effects.ID) {
	r.supportedEffects.Store(uint32(r.SupportedEffects().With(id)))
}

func (r *Route) resetAvailability() {
	r.blocked = false
	r.previouslyUsed = r.used
	r.used = false
}

func (r *Route) setStage(stage Stage, on bool) {
	if on {
		r.stages |= stage
	} else {
		r.stages &^= stage
	}
}

// RouteState is a copy of a route's state safe to hand to other goroutines.
type RouteState struct {
	Name           string
	Direction      audio.Direction
	Mask           uint32
	Stream         bool
	Applicable     bool
	Blocked        bool
	Used           bool
	PreviouslyUsed bool
	NeedReflow     bool
	NeedRepath     bool
}

func (r *Route) state() RouteState {
	return RouteState{
		Name:           r.name,
		Direction:      r.dir,
		Mask:           r.mask,
		Stream:         r.IsStreamRoute(),
		Applicable:     r.applicable,
		Blocked:        r.blocked,
		Used:           r.used,
		PreviouslyUsed: r.previouslyUsed,
		NeedReflow:     r.NeedReflow(),
		NeedRepath:     r.NeedRepath(),
	}
}
