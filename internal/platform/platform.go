// Package platform builds the routing engine and the criteria from the
// platform section of the settings, and drives reconsideration from
// criterion changes.
package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/criterion"
	"github.com/tphakala/routemgr/internal/device"
	"github.com/tphakala/routemgr/internal/device/malgo"
	"github.com/tphakala/routemgr/internal/errors"
	"github.com/tphakala/routemgr/internal/logging"
	"github.com/tphakala/routemgr/internal/observability/metrics"
	"github.com/tphakala/routemgr/internal/parameter"
	"github.com/tphakala/routemgr/internal/routing"
)

// Route mask criteria the platform keeps up to date when they are declared
const (
	CriterionOpenedPlayback  = "OpenedPlaybackRoutes"
	CriterionOpenedCapture   = "OpenedCaptureRoutes"
	CriterionClosingPlayback = "ClosingPlaybackRoutes"
	CriterionClosingCapture  = "ClosingCaptureRoutes"
)

// Device backends
const (
	BackendMemory = "memory"
	BackendMalgo  = "malgo"
)

// Config holds the optional collaborators of a Platform.
type Config struct {
	Metrics   *metrics.RoutingMetrics
	Publisher routing.EventPublisher
	// Executor receives the stages after the platform published the route masks
	Executor routing.Executor
	Logger   *slog.Logger

	StrictContention bool
}

type routeRules struct {
	applicable  criterion.RuleSet
	reconfigure criterion.RuleSet
	reroute     criterion.RuleSet
}

type deviceBackend struct {
	backend string
	name    string
}

// Platform owns the routing manager, the criteria and the typed parameters.
type Platform struct {
	mu sync.Mutex

	routes   *routing.Manager
	criteria *criterion.Manager
	store    *parameter.Store

	params    map[string]parameter.Parameter
	paramKeys []string

	routeOrder []string
	routeRules map[string]routeRules
	portOrder  []string
	portRules  map[string]criterion.RuleSet
	backends   map[string]deviceBackend

	next    routing.Executor
	metrics *metrics.RoutingMetrics
	logger  *slog.Logger
}

var _ routing.Executor = (*Platform)(nil)

// New builds a platform from its configuration. Every problem found is
// reported in one error wrapping ErrInvalidPlatform.
func New(p *conf.Platform, config Config) (*Platform, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.ForService("platform")
	}
	next := config.Executor
	if next == nil {
		next = routing.NopExecutor{}
	}

	pl := &Platform{
		criteria:   criterion.NewManager(logger.With("component", "criterion")),
		store:      parameter.NewStore(),
		params:     make(map[string]parameter.Parameter),
		routeRules: make(map[string]routeRules),
		portRules:  make(map[string]criterion.RuleSet),
		backends:   make(map[string]deviceBackend),
		next:       next,
		metrics:    config.Metrics,
		logger:     logger,
	}
	pl.routes = routing.NewManager(routing.Config{
		Executor:         pl,
		DeviceFactory:    pl.newDevice,
		Metrics:          config.Metrics,
		Publisher:        config.Publisher,
		Logger:           logger.With("component", "routing"),
		StrictContention: config.StrictContention,
	})

	var errs []error
	errs = append(errs, pl.buildCriteria(p)...)
	errs = append(errs, pl.buildTopology(p)...)
	errs = append(errs, pl.buildRoutes(p)...)
	errs = append(errs, pl.buildParameters(p)...)
	if len(errs) > 0 {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrInvalidPlatform, errors.Join(errs...))).
			Component(ComponentPlatform).
			Category(errors.CategoryConfiguration).
			Context("problems", len(errs)).
			Build()
	}

	logger.Info("platform built",
		"ports", len(p.Ports),
		"port_groups", len(p.PortGroups),
		"criteria", len(p.Criteria),
		"routes", len(p.Routes),
		"parameters", len(p.Parameters))
	return pl, nil
}

func (pl *Platform) buildCriteria(p *conf.Platform) []error {
	var errs []error
	for _, ct := range p.CriterionTypes {
		if err := pl.criteria.AddType(ct.Name, ct.Inclusive); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, v := range ct.Values {
			if err := pl.criteria.AddTypeValue(ct.Name, v.Literal, v.Value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, c := range p.Criteria {
		if err := pl.criteria.AddCriterion(c.Name, c.Type, c.Default); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (pl *Platform) buildTopology(p *conf.Platform) []error {
	var errs []error
	for _, port := range p.Ports {
		if _, err := pl.routes.AddPort(port.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		pl.portOrder = append(pl.portOrder, port.Name)
		pl.portRules[port.Name] = rules(port.BlockedWhen)
	}
	for _, group := range p.PortGroups {
		for _, member := range group.Members {
			if err := pl.routes.AddPortGroup(group.Name, member); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func (pl *Platform) buildRoutes(p *conf.Platform) []error {
	var errs []error
	for _, rc := range p.Routes {
		dir, err := audio.ParseDirection(rc.Direction)
		if err != nil {
			errs = append(errs, fmt.Errorf("route %s: %w", rc.Name, err))
			continue
		}

		if rc.Stream {
			d := rc.Device
			if d == nil {
				d = &conf.StreamDeviceConfig{}
			}
			cfg, err := streamRouteConfig(d)
			if err != nil {
				errs = append(errs, fmt.Errorf("route %s: %w", rc.Name, err))
				continue
			}
			backend := d.Backend
			if backend == "" {
				backend = BackendMemory
			}
			pl.backends[rc.Name] = deviceBackend{backend: backend, name: d.Name}
			_, err = pl.routes.AddStreamRoute(rc.Name, rc.Source, rc.Destination, dir, cfg)
			if err != nil {
				errs = append(errs, err)
				continue
			}
		} else if _, err := pl.routes.AddRoute(rc.Name, rc.Source, rc.Destination, dir); err != nil {
			errs = append(errs, err)
			continue
		}

		for _, effect := range rc.Effects {
			if err := pl.routes.AddRouteSupportedEffect(rc.Name, effect); err != nil {
				errs = append(errs, err)
			}
		}
		pl.routeOrder = append(pl.routeOrder, rc.Name)
		pl.routeRules[rc.Name] = routeRules{
			applicable:  rules(rc.ApplicableWhen),
			reconfigure: rules(rc.ReconfigureWhen),
			reroute:     rules(rc.RerouteWhen),
		}
	}
	return errs
}

func (pl *Platform) buildParameters(p *conf.Platform) []error {
	var errs []error
	for _, pc := range p.Parameters {
		mapping := make([]parameter.Mapping, len(pc.Mapping))
		for i, m := range pc.Mapping {
			mapping[i] = parameter.Mapping{Value: m.Value, Literal: m.Literal}
		}

		var param parameter.Parameter
		switch pc.Type {
		case "uint32":
			param = parameter.NewRogue(pc.Key, pc.Name, pc.Default, mapping, parameter.Uint32, pl.store)
		case "int32":
			param = parameter.NewRogue(pc.Key, pc.Name, pc.Default, mapping, parameter.Int32, pl.store)
		case "bool":
			param = parameter.NewRogue(pc.Key, pc.Name, pc.Default, mapping, parameter.Bool, pl.store)
		case "string":
			param = parameter.NewRogue(pc.Key, pc.Name, pc.Default, mapping, parameter.String, pl.store)
		default:
			errs = append(errs, fmt.Errorf("parameter %s: unknown type %q", pc.Key, pc.Type))
			continue
		}
		if err := param.Sync(); err != nil {
			errs = append(errs, err)
			continue
		}
		pl.params[pc.Key] = param
		pl.paramKeys = append(pl.paramKeys, pc.Key)
	}
	return errs
}

// rules converts configured rules. Validation already ensured one operator per rule.
func rules(list []conf.RuleConfig) criterion.RuleSet {
	out := make(criterion.RuleSet, 0, len(list))
	for _, r := range list {
		switch {
		case r.Includes != "":
			out = append(out, criterion.Rule{Criterion: r.Criterion, Op: criterion.OpIncludes, Literal: r.Includes})
		case r.Excludes != "":
			out = append(out, criterion.Rule{Criterion: r.Criterion, Op: criterion.OpExcludes, Literal: r.Excludes})
		default:
			out = append(out, criterion.Rule{Criterion: r.Criterion, Op: criterion.OpIs, Literal: r.Is})
		}
	}
	return out
}

func streamRouteConfig(d *conf.StreamDeviceConfig) (routing.StreamRouteConfig, error) {
	cfg := routing.StreamRouteConfig{
		Card:              d.Card,
		Device:            d.Device,
		PeriodSize:        d.PeriodSize,
		PeriodCount:       d.PeriodCount,
		SilencePrologMs:   d.SilencePrologMs,
		ApplicableDevices: audio.Devices(d.ApplicableDevices),
		ApplicableFlags:   d.ApplicableFlags,
	}
	cfg.SampleSpec.Rate = d.Rate

	var err error
	if d.Format != "" {
		if cfg.SampleSpec.Format, err = audio.ParseFormat(d.Format); err != nil {
			return cfg, err
		}
	}
	if d.Channels != "" {
		if cfg.SampleSpec.Channels, err = audio.ParseChannelMask(d.Channels); err != nil {
			return cfg, err
		}
	}

	cfg.Capabilities.Rates = d.SupportedRates
	for _, f := range d.SupportedFormats {
		format, err := audio.ParseFormat(f)
		if err != nil {
			return cfg, err
		}
		cfg.Capabilities.Formats = append(cfg.Capabilities.Formats, format)
	}
	for _, c := range d.SupportedChannels {
		mask, err := audio.ParseChannelMask(c)
		if err != nil {
			return cfg, err
		}
		cfg.Capabilities.ChannelMasks = append(cfg.Capabilities.ChannelMasks, mask)
	}
	return cfg, nil
}

// newDevice builds the PCM device of a stream route on its configured backend.
func (pl *Platform) newDevice(route string, dir audio.Direction, config routing.StreamRouteConfig) (device.Device, error) {
	b := pl.backends[route]
	switch b.backend {
	case BackendMalgo:
		name := fmt.Sprintf("hw:%d,%d", config.Card, config.Device)
		return malgo.New(name, malgo.Config{
			DeviceName:  b.name,
			Direction:   dir,
			PeriodSize:  config.PeriodSize,
			PeriodCount: config.PeriodCount,
		}, nil), nil
	default:
		return routing.MemoryDeviceFactory(route, dir, config)
	}
}

// Routing returns the routing manager
func (pl *Platform) Routing() *routing.Manager { return pl.routes }

// Criteria returns the criterion manager
func (pl *Platform) Criteria() *criterion.Manager { return pl.criteria }
