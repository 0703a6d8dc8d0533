package routing

import (
	"context"
	"time"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/events"
	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/observability/metrics"
)

// streamChange is what a cycle does to one registered stream
type streamChange struct {
	stream Stream
	from   *StreamRoute
	to     *StreamRoute
	detach bool
	attach bool
}

// ResetAvailability starts a cycle: every route carries used into
// previouslyUsed and clears used and blocked, every port clears its state.
func (m *Manager) ResetAvailability() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetAvailability()
}

// Prepare applies port policy blocks, then marks applicable routes used in
// priority order. It returns ErrContention if a port group ends up with two
// used members.
func (m *Manager) Prepare() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepare()
}

func (m *Manager) resetAvailability() {
	for _, r := range m.routes {
		r.resetAvailability()
	}
	for _, p := range m.ports {
		p.resetAvailability()
	}
}

func (m *Manager) prepare() error {
	for _, p := range m.ports {
		if p.policyBlocked {
			m.blockPort(p)
		}
	}
	for _, id := range m.priority {
		m.prepareRoute(m.routes[id])
	}
	return m.checkContention()
}

func (m *Manager) prepareRoute(r *Route) {
	if r.IsApplicable() {
		m.setRouteUsed(r)
	}
}

func (m *Manager) setRouteUsed(r *Route) {
	r.used = true
	m.logger.Log(context.Background(), logging.LevelTrace, "route in use",
		"route", r.name,
		"direction", r.dir.String())

	for _, pid := range r.ports {
		if pid != noPort {
			m.setPortUsed(m.ports[pid], r)
		}
	}
}

// setPortUsed marks p used by r and blocks every other member of p's groups.
func (m *Manager) setPortUsed(p *Port, r *Route) {
	p.used = true
	p.usedBy = append(p.usedBy, r.id)

	for _, gid := range p.groups {
		for _, member := range m.groups[gid].members {
			if member != p.id {
				m.blockPort(m.ports[member])
			}
		}
	}
}

// blockPort blocks p and every route over it for the rest of the cycle.
func (m *Manager) blockPort(p *Port) {
	if p.blocked {
		return
	}
	p.blocked = true
	for _, rid := range p.routes {
		r := m.routes[rid]
		if !r.blocked {
			r.blocked = true
			m.logger.Log(context.Background(), logging.LevelTrace, "route blocked",
				"route", r.name,
				"port", p.name)
		}
	}
}

func (m *Manager) checkContention() error {
	var errs []error
	for _, g := range m.groups {
		var used []string
		for _, pid := range g.members {
			if m.ports[pid].used {
				used = append(used, m.ports[pid].name)
			}
		}
		if len(used) <= 1 {
			continue
		}

		err := errors.New(ErrContention).
			Component(ComponentRouting).
			Category(errors.CategoryContention).
			Priority(errors.PriorityCritical).
			Context("group", g.name).
			Context("ports", used).
			Build()
		m.logger.Error("port group contention", "group", g.name, "ports", used)
		if m.metrics != nil {
			m.metrics.RecordContentionViolation()
		}
		if m.strict {
			panic(err)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reconsider runs one full cycle: reset, prepare, stream election and, when
// anything changed, the mute, disable, configure, enable and unmute stages.
// Stage errors do not stop later stages; they are joined and returned with
// the plan.
func (m *Manager) Reconsider(ctx context.Context) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	m.cycle++

	m.resetAvailability()
	contentionErr := m.prepare()

	plan := m.commit()
	changes := m.electStreams(plan)

	var stageErr error
	if plan.Changed {
		stageErr = m.executeStages(ctx, plan, changes)
	}
	plan.Duration = time.Since(start)

	err := errors.Join(contentionErr, stageErr)
	m.record(plan, err)
	return plan, err
}

// commit turns the route flags into a plan.
func (m *Manager) commit() *Plan {
	plan := &Plan{Cycle: m.cycle}

	for _, id := range m.priority {
		r := m.routes[id]
		switch {
		case r.used && !r.previouslyUsed:
			plan.Enabled = append(plan.Enabled, r.name)
		case !r.used && r.previouslyUsed:
			plan.Disabled = append(plan.Disabled, r.name)
		}
		if r.NeedReflow() {
			plan.Reflow = append(plan.Reflow, r.name)
		}
		if r.NeedRepath() {
			plan.Repath = append(plan.Repath, r.name)
		}

		if r.used {
			plan.OpenedMask[r.dir] |= r.mask
		}
		if r.previouslyUsed && (!r.used || r.NeedRepath()) {
			plan.ClosingMask[r.dir] |= r.mask
		}
	}

	plan.Changed = len(plan.Enabled) > 0 || len(plan.Disabled) > 0 ||
		len(plan.Reflow) > 0 || len(plan.Repath) > 0
	return plan
}

// electStreams offers each used stream route, in priority order, to the
// first registered stream it matches that is not yet served.
func (m *Manager) electStreams(plan *Plan) []streamChange {
	elected := make(map[Stream]*StreamRoute, len(m.streams))

	for _, id := range m.priority {
		r := m.routes[id]
		if r.stream == nil || !r.used {
			continue
		}
		for _, s := range m.streams {
			if _, served := elected[s]; served {
				continue
			}
			if r.stream.IsMatchingWithStream(s) {
				elected[s] = r.stream
				break
			}
		}
	}

	changes := make([]streamChange, 0, len(m.streams))
	for _, s := range m.streams {
		next := elected[s]
		if next != nil {
			s.SetNewStreamRoute(next)
		} else {
			s.ResetNewStreamRoute()
		}

		cur := s.CurrentStreamRoute()
		change := streamChange{stream: s, from: cur, to: next}
		change.detach = cur != nil && (cur != next || !cur.used || cur.NeedRepath())
		change.attach = next != nil && (cur == nil || change.detach)
		if change.detach || change.attach {
			plan.Changed = true
		}
		changes = append(changes, change)
	}
	return changes
}

func (m *Manager) executeStages(ctx context.Context, plan *Plan, changes []streamChange) error {
	var errs []error

	// Mute
	if muted := concat(plan.Reflow, plan.Disabled); len(muted) > 0 {
		if err := m.executor.Mute(ctx, muted); err != nil {
			errs = append(errs, m.stageError("mute", err))
		}
	}

	// Disable
	for _, c := range changes {
		if !c.detach {
			continue
		}
		if err := c.stream.DetachRoute(); err != nil {
			errs = append(errs, m.stageError("detach", err))
		}
		if c.from.AttachedStream() == c.stream {
			c.from.setAttached(nil)
		}
		plan.Detached = append(plan.Detached, c.stream.ID())
		m.logger.Debug("stream detached", "stream_id", c.stream.ID(), "route", c.from.name)
	}
	for _, name := range concat(plan.Disabled, plan.Repath) {
		if err := m.closeDevice(name); err != nil {
			errs = append(errs, err)
		}
	}

	// Configure
	if err := m.executor.Configure(ctx, plan); err != nil {
		errs = append(errs, m.stageError("configure", err))
	}

	// Enable
	for _, name := range concat(plan.Enabled, plan.Repath) {
		if err := m.openDevice(name); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range changes {
		if !c.attach {
			continue
		}
		if err := c.stream.AttachRoute(); err != nil {
			errs = append(errs, m.stageError("attach", err))
			m.recordAttach(metrics.StatusError)
			continue
		}
		c.to.setAttached(c.stream)
		plan.Attached = append(plan.Attached, c.stream.ID())
		m.recordAttach(metrics.StatusSuccess)
		m.logger.Debug("stream attached", "stream_id", c.stream.ID(), "route", c.to.name)
	}

	// Unmute
	if unmuted := concat(plan.Reflow, plan.Enabled); len(unmuted) > 0 {
		if err := m.executor.Unmute(ctx, unmuted); err != nil {
			errs = append(errs, m.stageError("unmute", err))
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) openDevice(name string) error {
	sr := m.routes[m.routeByName[name]].stream
	if sr == nil {
		return nil
	}
	dev := sr.Device()
	if dev != nil && dev.IsOpen() {
		return nil
	}
	if dev == nil || sr.isStale() {
		rebuilt, err := m.newDevice(name, sr.dir, sr.Config())
		if err != nil {
			return errors.New(err).
				Component(ComponentRouting).
				Category(errors.CategoryDevice).
				RouteContext(name, sr.dir.String()).
				Context("operation", "rebuild_device").
				Build()
		}
		m.logger.Debug("route device rebuilt", "route", name, "device", rebuilt.Name())
		sr.setDevice(rebuilt)
		dev = rebuilt
	}
	spec := sr.SampleSpec()
	if err := dev.Open(spec); err != nil {
		return errors.New(err).
			Component(ComponentRouting).
			Category(errors.CategoryDevice).
			RouteContext(name, sr.dir.String()).
			Context("operation", "open_device").
			Context("device", dev.Name()).
			Build()
	}
	m.logger.Debug("route device opened", "route", name, "device", dev.Name(), "spec", spec.String())
	return nil
}

func (m *Manager) closeDevice(name string) error {
	sr := m.routes[m.routeByName[name]].stream
	if sr == nil {
		return nil
	}
	dev := sr.Device()
	if dev == nil || !dev.IsOpen() {
		return nil
	}
	if err := dev.Close(); err != nil {
		return errors.New(err).
			Component(ComponentRouting).
			Category(errors.CategoryDevice).
			RouteContext(name, sr.dir.String()).
			Context("operation", "close_device").
			Context("device", dev.Name()).
			Build()
	}
	m.logger.Debug("route device closed", "route", name, "device", dev.Name())
	return nil
}

func (m *Manager) stageError(stage string, err error) error {
	return errors.New(err).
		Component(ComponentRouting).
		Category(errors.CategoryRouting).
		Context("stage", stage).
		Context("cycle", m.cycle).
		Build()
}

func (m *Manager) recordAttach(status string) {
	if m.metrics != nil {
		m.metrics.RecordStreamAttach(status)
	}
}

// record logs, counts and publishes a finished cycle
func (m *Manager) record(plan *Plan, err error) {
	if m.metrics != nil {
		result := "unchanged"
		switch {
		case err != nil:
			result = "error"
		case plan.Changed:
			result = "changed"
		}
		m.metrics.RecordReconsider(result, plan.Duration)

		var used [audio.NumDirections]int
		for _, r := range m.routes {
			if r.used {
				used[r.dir]++
			}
		}
		for dir := audio.Direction(0); dir < audio.NumDirections; dir++ {
			m.metrics.SetRoutesUsed(dir.String(), used[dir])
		}
		for _, transition := range []struct {
			label  string
			routes []string
		}{
			{metrics.TransitionEnabled, plan.Enabled},
			{metrics.TransitionDisabled, plan.Disabled},
			{metrics.TransitionReflow, plan.Reflow},
			{metrics.TransitionRepath, plan.Repath},
		} {
			for _, name := range transition.routes {
				m.metrics.RecordRouteTransition(name, transition.label)
			}
		}
	}

	if !plan.Changed && err == nil {
		m.logger.Debug("routing unchanged", "cycle", plan.Cycle, "duration", plan.Duration)
		return
	}

	m.logger.Info("routing changed",
		"cycle", plan.Cycle,
		"enabled", plan.Enabled,
		"disabled", plan.Disabled,
		"reflow", plan.Reflow,
		"repath", plan.Repath,
		"duration", plan.Duration)
	if err != nil {
		m.logger.Error("routing cycle finished with errors", "cycle", plan.Cycle, "error", err)
	}

	if m.publisher != nil {
		event := &events.RoutingEvent{
			Cycle:       plan.Cycle,
			Enabled:     plan.Enabled,
			Disabled:    plan.Disabled,
			Reflow:      plan.Reflow,
			Repath:      plan.Repath,
			Attached:    plan.Attached,
			Detached:    plan.Detached,
			OpenedMask:  plan.OpenedMask,
			ClosingMask: plan.ClosingMask,
			Duration:    plan.Duration,
			Timestamp:   time.Now(),
			Err:         err,
		}
		if !m.publisher.TryPublish(event) {
			m.logger.Debug("routing event not published", "cycle", plan.Cycle)
		}
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
