package routing

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/device"
	"github.com/tphakala/routemgr/internal/effects"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/observability/metrics"
)

// DeviceFactory builds the PCM device of a stream route.
type DeviceFactory func(route string, dir audio.Direction, config StreamRouteConfig) (device.Device, error)

// EventPublisher accepts routing events without blocking.
type EventPublisher interface {
	TryPublish(event any) bool
}

// Config holds the collaborators of a Manager. Every field is optional.
type Config struct {
	Executor      Executor      // defaults to NopExecutor
	DeviceFactory DeviceFactory // defaults to in-memory devices
	Metrics       *metrics.RoutingMetrics
	Publisher     EventPublisher
	Logger        *slog.Logger

	// StrictContention panics when a cycle ends with two used ports in one group
	StrictContention bool
}

// Manager owns the ports, port groups and routes and runs reconsideration cycles.
type Manager struct {
	mu sync.Mutex

	ctx *Context

	routes      []*Route
	routeByName map[string]RouteID
	ports       []*Port
	portByName  map[string]PortID
	groups      []*PortGroup
	groupByName map[string]GroupID

	// priority is the prepare order, registration order unless SetPriority was called
	priority []RouteID
	streams  []Stream

	executor  Executor
	newDevice DeviceFactory
	metrics   *metrics.RoutingMetrics
	publisher EventPublisher
	strict    bool
	logger    *slog.Logger

	cycle uint64
}

// NewManager creates an empty manager.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = logging.ForService("routing")
	}
	if config.Executor == nil {
		config.Executor = NopExecutor{}
	}
	if config.DeviceFactory == nil {
		config.DeviceFactory = MemoryDeviceFactory
	}

	return &Manager{
		ctx:         NewContext(),
		routeByName: make(map[string]RouteID),
		portByName:  make(map[string]PortID),
		groupByName: make(map[string]GroupID),
		executor:    config.Executor,
		newDevice:   config.DeviceFactory,
		metrics:     config.Metrics,
		publisher:   config.Publisher,
		strict:      config.StrictContention,
		logger:      logger,
	}
}

// MemoryDeviceFactory returns device.Memory devices named hw:<card>,<device>.
func MemoryDeviceFactory(route string, dir audio.Direction, config StreamRouteConfig) (device.Device, error) {
	return device.NewMemory(deviceName(config)), nil
}

func deviceName(config StreamRouteConfig) string {
	return fmt.Sprintf("hw:%d,%d", config.Card, config.Device)
}

// unknown logs and counts a directive naming an unknown object.
func (m *Manager) unknown(sentinel *errors.EnhancedError, kind, name string) error {
	m.logger.Warn("ignoring directive for unknown "+kind, kind, name)
	if m.metrics != nil {
		m.metrics.RecordConfigError("unknown_" + kind)
	}
	return wrap(sentinel, kind, name)
}

// AddPort registers a port.
func (m *Manager) AddPort(name string) (PortID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.portByName[name]; exists {
		return noPort, wrap(ErrDuplicateName, "port", name)
	}
	id := PortID(len(m.ports))
	m.ports = append(m.ports, &Port{id: id, name: name})
	m.portByName[name] = id

	m.logger.Debug("port added", "port", name)
	return id, nil
}

// AddPortGroup adds member to group, creating the group on first use.
func (m *Manager) AddPortGroup(group, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pid, ok := m.portByName[member]
	if !ok {
		return m.unknown(ErrPortNotFound, "port", member)
	}

	gid, ok := m.groupByName[group]
	if !ok {
		gid = GroupID(len(m.groups))
		m.groups = append(m.groups, &PortGroup{id: gid, name: group})
		m.groupByName[group] = gid
	}
	g := m.groups[gid]
	if g.has(pid) {
		return nil
	}

	// A route over two members of one group would block itself
	for _, rid := range m.ports[pid].routes {
		r := m.routes[rid]
		for _, other := range r.ports {
			if other != noPort && other != pid && g.has(other) {
				return wrap(ErrSharedGroup, "route", r.name)
			}
		}
	}

	g.members = append(g.members, pid)
	port := m.ports[pid]
	port.groups = append(port.groups, gid)

	m.logger.Debug("port added to group", "group", group, "port", member)
	return nil
}

// AddRoute registers a plain route. src and dst may be empty.
func (m *Manager) AddRoute(name, src, dst string, dir audio.Direction) (*Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addRoute(name, src, dst, dir)
}

// AddStreamRoute registers a route owning a PCM device.
func (m *Manager) AddStreamRoute(name, src, dst string, dir audio.Direction, config StreamRouteConfig) (*StreamRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := m.newDevice(name, dir, config)
	if err != nil {
		return nil, err
	}

	r, err := m.addRoute(name, src, dst, dir)
	if err != nil {
		return nil, err
	}
	r.stream = &StreamRoute{Route: r, config: config, device: dev}

	return r.stream, nil
}

func (m *Manager) addRoute(name, src, dst string, dir audio.Direction) (*Route, error) {
	if _, exists := m.routeByName[name]; exists {
		return nil, wrap(ErrDuplicateName, "route", name)
	}

	var ports []PortID
	for _, portName := range []string{src, dst} {
		if portName == "" {
			continue
		}
		pid, ok := m.portByName[portName]
		if !ok {
			return nil, m.unknown(ErrPortNotFound, "port", portName)
		}
		ports = append(ports, pid)
	}
	if len(ports) == 2 && m.shareGroup(ports[0], ports[1]) {
		return nil, wrap(ErrSharedGroup, "route", name)
	}

	mask, err := m.ctx.NextMask(dir)
	if err != nil {
		return nil, err
	}

	id := RouteID(len(m.routes))
	r := newRoute(id, name, dir, mask)
	for _, pid := range ports {
		r.addPort(pid)
		m.ports[pid].routes = append(m.ports[pid].routes, id)
	}

	m.routes = append(m.routes, r)
	m.routeByName[name] = id
	m.priority = append(m.priority, id)

	m.logger.Debug("route added",
		"route", name,
		"direction", dir.String(),
		"mask", mask,
		"source", src,
		"destination", dst)
	return r, nil
}

func (m *Manager) shareGroup(a, b PortID) bool {
	if a == b {
		return false
	}
	for _, gid := range m.ports[a].groups {
		if m.groups[gid].has(b) {
			return true
		}
	}
	return false
}

func (m *Manager) lookupRoute(name string) (*Route, error) {
	id, ok := m.routeByName[name]
	if !ok {
		return nil, m.unknown(ErrRouteNotFound, "route", name)
	}
	return m.routes[id], nil
}

func (m *Manager) lookupStreamRoute(name string) (*StreamRoute, error) {
	r, err := m.lookupRoute(name)
	if err != nil {
		return nil, err
	}
	sr, ok := r.AsStreamRoute()
	if !ok {
		return nil, wrap(ErrNotStreamRoute, "route", name)
	}
	return sr, nil
}

// UpdateStreamRouteConfig replaces the PCM configuration of a stream route.
// A closed device is rebuilt from the new configuration; an open one keeps
// running and is replaced by a device built from the new configuration the
// next time the route opens it.
func (m *Manager) UpdateStreamRouteConfig(name string, config StreamRouteConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sr, err := m.lookupStreamRoute(name)
	if err != nil {
		return err
	}

	var dev device.Device
	if current := sr.Device(); current == nil || !current.IsOpen() {
		dev, err = m.newDevice(name, sr.dir, config)
		if err != nil {
			return err
		}
	}
	sr.setConfig(config, dev)

	m.logger.Debug("stream route config updated",
		"route", name,
		"spec", config.SampleSpec.String(),
		"card", config.Card,
		"device", config.Device)
	return nil
}

// AddRouteSupportedEffect marks an effect as running in the route's hardware.
func (m *Manager) AddRouteSupportedEffect(route, effect string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.lookupRoute(route)
	if err != nil {
		return err
	}
	id, err := effects.IDFromName(effect)
	if err != nil {
		m.logger.Warn("ignoring unknown effect", "route", route, "effect", effect)
		return wrap(ErrUnknownEffect, "effect", effect)
	}
	r.addSupportedEffect(id)
	return nil
}

// SetRouteApplicable sets whether the route may be used in the next cycle.
func (m *Manager) SetRouteApplicable(name string, applicable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.lookupRoute(name)
	if err != nil {
		return err
	}
	r.applicable = applicable
	return nil
}

// SetRouteNeedReconfigure requests the Flow stage on the route.
func (m *Manager) SetRouteNeedReconfigure(name string, need bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.lookupRoute(name)
	if err != nil {
		return err
	}
	r.setStage(StageFlow, need)
	return nil
}

// SetRouteNeedReroute requests the Path stage on the route.
func (m *Manager) SetRouteNeedReroute(name string, need bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.lookupRoute(name)
	if err != nil {
		return err
	}
	r.setStage(StagePath, need)
	return nil
}

// SetPortBlocked blocks or unblocks a port by platform policy. The block is
// applied at the start of every prepare until cleared.
func (m *Manager) SetPortBlocked(name string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pid, ok := m.portByName[name]
	if !ok {
		return m.unknown(ErrPortNotFound, "port", name)
	}
	m.ports[pid].policyBlocked = blocked
	return nil
}

// SetPriority sets the prepare order. Listed routes come first in the given
// order; the others follow in registration order.
func (m *Manager) SetPriority(names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := make([]RouteID, 0, len(m.routes))
	seen := make(map[RouteID]bool, len(m.routes))
	for _, name := range names {
		r, err := m.lookupRoute(name)
		if err != nil {
			return err
		}
		if !seen[r.id] {
			order = append(order, r.id)
			seen[r.id] = true
		}
	}
	for _, r := range m.routes {
		if !seen[r.id] {
			order = append(order, r.id)
		}
	}
	m.priority = order
	return nil
}

// AddStream registers a stream for election. Streams are served in
// registration order.
func (m *Manager) AddStream(s Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, s)
	m.logger.Debug("stream added", "stream_id", s.ID(), "direction", s.Direction().String())
}

// RemoveStream unregisters a stream and releases the route it was attached to.
func (m *Manager) RemoveStream(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.streams, func(s Stream) bool { return s.ID() == id })
	if idx < 0 {
		return false
	}
	s := m.streams[idx]
	if cur := s.CurrentStreamRoute(); cur != nil && cur.AttachedStream() == s {
		cur.setAttached(nil)
	}
	m.streams = slices.Delete(m.streams, idx, idx+1)
	m.logger.Debug("stream removed", "stream_id", id)
	return true
}

// Route returns a route by name. See Route for which accessors are safe
// while cycles run.
func (m *Manager) Route(name string) (*Route, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.routeByName[name]
	if !ok {
		return nil, false
	}
	return m.routes[id], true
}

// StreamRoute returns a stream route by name.
func (m *Manager) StreamRoute(name string) (*StreamRoute, bool) {
	r, ok := m.Route(name)
	if !ok {
		return nil, false
	}
	return r.AsStreamRoute()
}

// Port returns a port by name.
func (m *Manager) Port(name string) (*Port, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.portByName[name]
	if !ok {
		return nil, false
	}
	return m.ports[id], true
}

// Routes returns the routes in registration order. Use Snapshot to read
// their state from outside the goroutine driving Reconsider.
func (m *Manager) Routes() []*Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.routes)
}

// Ports returns the ports in registration order.
func (m *Manager) Ports() []*Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ports)
}

// Groups returns the port groups in registration order.
func (m *Manager) Groups() []*PortGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.groups)
}

// Snapshot copies the state of every route.
func (m *Manager) Snapshot() []RouteState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]RouteState, len(m.routes))
	for i, r := range m.routes {
		states[i] = r.state()
	}
	return states
}
