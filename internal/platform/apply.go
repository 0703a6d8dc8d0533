package platform

import (
	"context"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/criterion"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/routing"
)

// ParameterState is a snapshot of one typed parameter
type ParameterState struct {
	Key   string
	Name  string
	Value string
}

// SetParameter forwards a host key/value pair to the criterion of that name,
// or to the typed parameter with that key. It returns whether anything
// changed; typed parameters always report a change once set.
func (pl *Platform) SetParameter(key, value string) (bool, error) {
	if pl.criteria.Has(key) {
		changed, err := pl.criteria.SetParameter(key, value)
		if err != nil {
			pl.recordConfigError("criterion_value")
		}
		return changed, err
	}

	if param, ok := pl.params[key]; ok {
		if err := param.Set(value); err != nil {
			pl.recordConfigError("parameter_value")
			return false, err
		}
		return true, nil
	}

	pl.logger.Warn("ignoring unknown parameter", "key", key)
	pl.recordConfigError("unknown_parameter")
	return false, errors.Newf("%w: %s", ErrUnknownParameter, key).
		Component(ComponentPlatform).
		Category(errors.CategoryNotFound).
		Context("key", key).
		Build()
}

// Reset puts every criterion and typed parameter back to its configured
// default. Routes follow on the next Apply.
func (pl *Platform) Reset() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	pl.criteria.ResetDefaults()
	pl.store.Flush()

	var errs []error
	for _, key := range pl.paramKeys {
		if err := pl.params[key].Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	pl.logger.Info("platform reset to defaults",
		"criteria", len(pl.criteria.Criteria()),
		"parameters", pl.store.Len())
	return errors.Join(errs...)
}

// Parameters returns the typed parameters in declaration order.
func (pl *Platform) Parameters() []ParameterState {
	out := make([]ParameterState, 0, len(pl.paramKeys))
	for _, key := range pl.paramKeys {
		param := pl.params[key]
		value, err := param.Get()
		if err != nil {
			value = "<" + err.Error() + ">"
		}
		out = append(out, ParameterState{Key: key, Name: param.Name(), Value: value})
	}
	return out
}

// Apply evaluates every rule against the current criteria, feeds the
// results to the routing manager and runs one reconsideration cycle.
func (pl *Platform) Apply(ctx context.Context) (*routing.Plan, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for _, name := range pl.portOrder {
		blocked := pl.evaluate("port "+name, pl.portRules[name], false)
		if err := pl.routes.SetPortBlocked(name, blocked); err != nil {
			return nil, err
		}
	}

	for _, name := range pl.routeOrder {
		rr := pl.routeRules[name]
		owner := "route " + name
		if err := pl.routes.SetRouteApplicable(name, pl.evaluate(owner, rr.applicable, true)); err != nil {
			return nil, err
		}
		if err := pl.routes.SetRouteNeedReconfigure(name, pl.evaluate(owner, rr.reconfigure, false)); err != nil {
			return nil, err
		}
		if err := pl.routes.SetRouteNeedReroute(name, pl.evaluate(owner, rr.reroute, false)); err != nil {
			return nil, err
		}
	}

	plan, err := pl.routes.Reconsider(ctx)
	if plan != nil {
		pl.publishMasks(plan)
	}
	return plan, err
}

// evaluate returns the value of a rule set. Empty sets evaluate to
// whenEmpty: routes without applicable_when are always applicable, ports
// without blocked_when are never blocked.
func (pl *Platform) evaluate(owner string, rules criterion.RuleSet, whenEmpty bool) bool {
	if len(rules) == 0 {
		return whenEmpty
	}
	ok, err := pl.criteria.Evaluate(rules)
	if err != nil {
		pl.logger.Warn("rule evaluation failed",
			"owner", owner,
			"rules", rules.String(),
			"error", err)
		pl.recordConfigError("rule")
		return false
	}
	return ok
}

// publishMasks writes the plan's route masks to the mask criteria that exist.
func (pl *Platform) publishMasks(plan *routing.Plan) {
	for _, m := range []struct {
		criterion string
		value     uint32
	}{
		{CriterionOpenedPlayback, plan.Opened(audio.Output)},
		{CriterionOpenedCapture, plan.Opened(audio.Input)},
		{CriterionClosingPlayback, plan.Closing(audio.Output)},
		{CriterionClosingCapture, plan.Closing(audio.Input)},
	} {
		if !pl.criteria.Has(m.criterion) {
			continue
		}
		if _, err := pl.criteria.SetValue(m.criterion, m.value); err != nil {
			pl.recordConfigError("route_mask")
		}
	}
}

func (pl *Platform) recordConfigError(kind string) {
	if pl.metrics != nil {
		pl.metrics.RecordConfigError(kind)
	}
}

// Mute is the first stage of a changed cycle.
func (pl *Platform) Mute(ctx context.Context, routes []string) error {
	pl.logger.Info("muting routes", "routes", routes)
	return pl.next.Mute(ctx, routes)
}

// Configure publishes the route masks so the downstream executor sees the
// criteria of the new routing, then hands over.
func (pl *Platform) Configure(ctx context.Context, plan *routing.Plan) error {
	pl.publishMasks(plan)
	pl.logger.Debug("configuring audio path", "cycle", plan.Cycle)
	return pl.next.Configure(ctx, plan)
}

// Unmute is the last stage of a changed cycle.
func (pl *Platform) Unmute(ctx context.Context, routes []string) error {
	pl.logger.Info("unmuting routes", "routes", routes)
	return pl.next.Unmute(ctx, routes)
}
