// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"

	"github.com/tphakala/routemgr/internal/audio"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateLogSettings(&settings.Log); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry enabled but no DSN configured")
	}

	if settings.Events.Enabled && (settings.Events.BufferSize <= 0 || settings.Events.Workers <= 0) {
		ve.Errors = append(ve.Errors, "events buffer size and workers must be positive")
	}

	ve.Errors = append(ve.Errors, ValidatePlatform(&settings.Platform)...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogSettings(settings *LogConfig) error {
	switch strings.ToLower(settings.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", settings.Level)
	}

	if !settings.Enabled {
		return nil
	}
	switch settings.Rotation {
	case RotationDaily, RotationWeekly:
	case RotationSize:
		if settings.MaxSize <= 0 {
			return fmt.Errorf("log max_size must be positive for size rotation")
		}
	default:
		return fmt.Errorf("invalid log rotation %q", settings.Rotation)
	}
	if settings.Path == "" {
		return fmt.Errorf("log path must be set when file logging is enabled")
	}
	return nil
}

func validateMetricsSettings(settings *MetricsSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("invalid metrics listen address %q: %w", settings.Listen, err)
	}
	return nil
}

// ValidatePlatform checks the topology for dangling references and duplicates.
// It returns one message per problem found.
func ValidatePlatform(p *Platform) []string {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	ports := make(map[string]bool, len(p.Ports))
	for _, port := range p.Ports {
		if port.Name == "" {
			addf("port with empty name")
			continue
		}
		if ports[port.Name] {
			addf("duplicate port %q", port.Name)
		}
		ports[port.Name] = true
	}

	groups := make(map[string]bool, len(p.PortGroups))
	for _, group := range p.PortGroups {
		if groups[group.Name] {
			addf("duplicate port group %q", group.Name)
		}
		groups[group.Name] = true
		for _, member := range group.Members {
			if !ports[member] {
				addf("port group %q references unknown port %q", group.Name, member)
			}
		}
	}

	types := make(map[string]CriterionTypeConfig, len(p.CriterionTypes))
	for _, ct := range p.CriterionTypes {
		if _, dup := types[ct.Name]; dup {
			addf("duplicate criterion type %q", ct.Name)
		}
		types[ct.Name] = ct
	}

	criteria := make(map[string]CriterionTypeConfig, len(p.Criteria))
	for _, c := range p.Criteria {
		ct, ok := types[c.Type]
		if !ok {
			addf("criterion %q uses unknown type %q", c.Name, c.Type)
			continue
		}
		if _, dup := criteria[c.Name]; dup {
			addf("duplicate criterion %q", c.Name)
		}
		criteria[c.Name] = ct
	}

	checkRules := func(owner string, rules []RuleConfig) {
		for _, r := range rules {
			ct, ok := criteria[r.Criterion]
			if !ok {
				addf("%s: rule references unknown criterion %q", owner, r.Criterion)
				continue
			}
			set := 0
			for _, lit := range []string{r.Is, r.Includes, r.Excludes} {
				if lit != "" {
					set++
				}
			}
			if set != 1 {
				addf("%s: rule on %q must set exactly one of is, includes, excludes", owner, r.Criterion)
				continue
			}
			if !ct.Inclusive && (r.Includes != "" || r.Excludes != "") {
				addf("%s: includes/excludes need an inclusive criterion, %q is exclusive", owner, r.Criterion)
			}
		}
	}

	for _, port := range p.Ports {
		checkRules("port "+port.Name, port.BlockedWhen)
	}

	routes := make(map[string]bool, len(p.Routes))
	for _, r := range p.Routes {
		owner := "route " + r.Name
		if r.Name == "" {
			addf("route with empty name")
			continue
		}
		if routes[r.Name] {
			addf("duplicate route %q", r.Name)
		}
		routes[r.Name] = true

		if _, err := audio.ParseDirection(r.Direction); err != nil {
			addf("%s: %v", owner, err)
		}
		for _, port := range []string{r.Source, r.Destination} {
			if port != "" && !ports[port] {
				addf("%s: unknown port %q", owner, port)
			}
		}
		checkRules(owner, r.ApplicableWhen)
		checkRules(owner, r.ReconfigureWhen)
		checkRules(owner, r.RerouteWhen)

		if r.Stream && r.Device != nil {
			problems = append(problems, validateStreamDevice(owner, r.Device)...)
		}
		if !r.Stream && r.Device != nil {
			addf("%s: device section on a plain route", owner)
		}
	}

	keys := make(map[string]bool, len(p.Parameters))
	for _, param := range p.Parameters {
		owner := "parameter " + param.Key
		if param.Key == "" || param.Name == "" {
			addf("parameter needs both key and name")
			continue
		}
		if keys[param.Key] {
			addf("duplicate parameter key %q", param.Key)
		}
		keys[param.Key] = true
		if _, isCriterion := criteria[param.Key]; isCriterion {
			addf("%s: key collides with a criterion", owner)
		}
		switch param.Type {
		case "uint32", "int32", "bool", "string":
		default:
			addf("%s: unknown type %q", owner, param.Type)
		}
		if len(param.Mapping) == 0 {
			addf("%s: empty mapping", owner)
		}
	}

	return problems
}

func validateStreamDevice(owner string, d *StreamDeviceConfig) []string {
	var problems []string
	switch d.Backend {
	case "", "memory", "malgo":
	default:
		problems = append(problems, fmt.Sprintf("%s: unknown device backend %q", owner, d.Backend))
	}
	if d.Format != "" {
		if _, err := audio.ParseFormat(d.Format); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", owner, err))
		}
	}
	if d.Channels != "" {
		if _, err := audio.ParseChannelMask(d.Channels); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", owner, err))
		}
	}
	for _, f := range d.SupportedFormats {
		if _, err := audio.ParseFormat(f); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", owner, err))
		}
	}
	for _, c := range d.SupportedChannels {
		if _, err := audio.ParseChannelMask(c); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", owner, err))
		}
	}
	return problems
}
