package conf

// Platform describes the audio topology: ports, mutual exclusion groups,
// criteria and the routes that run over them. It is read once at startup.
type Platform struct {
	Ports          []PortConfig
	PortGroups     []PortGroupConfig     `mapstructure:"port_groups" yaml:"port_groups"`
	CriterionTypes []CriterionTypeConfig `mapstructure:"criterion_types" yaml:"criterion_types"`
	Criteria       []CriterionConfig
	Routes         []RouteConfig
	Parameters     []ParameterConfig `yaml:",omitempty"`
}

// PortConfig declares a hardware port
type PortConfig struct {
	Name        string
	BlockedWhen []RuleConfig `mapstructure:"blocked_when" yaml:"blocked_when,omitempty"`
}

// PortGroupConfig declares a set of mutually exclusive ports
type PortGroupConfig struct {
	Name    string
	Members []string
}

// CriterionValueConfig maps a literal to its numerical value
type CriterionValueConfig struct {
	Literal string
	Value   uint32
}

// CriterionTypeConfig declares a criterion type. Inclusive types are bitmasks.
type CriterionTypeConfig struct {
	Name      string
	Inclusive bool
	Values    []CriterionValueConfig
}

// CriterionConfig declares a criterion of a given type
type CriterionConfig struct {
	Name    string
	Type    string
	Default string
}

// RuleConfig is one condition on a criterion. Exactly one of Is, Includes or
// Excludes is set.
type RuleConfig struct {
	Criterion string
	Is        string `yaml:",omitempty"`
	Includes  string `yaml:",omitempty"`
	Excludes  string `yaml:",omitempty"`
}

// RouteConfig declares a route. Stream routes carry a Device section.
type RouteConfig struct {
	Name            string
	Direction       string
	Source          string `yaml:",omitempty"`
	Destination     string `yaml:",omitempty"`
	Stream          bool
	ApplicableWhen  []RuleConfig        `mapstructure:"applicable_when" yaml:"applicable_when,omitempty"`
	ReconfigureWhen []RuleConfig        `mapstructure:"reconfigure_when" yaml:"reconfigure_when,omitempty"`
	RerouteWhen     []RuleConfig        `mapstructure:"reroute_when" yaml:"reroute_when,omitempty"`
	Effects         []string            `yaml:",omitempty"`
	Device          *StreamDeviceConfig `yaml:",omitempty"`
}

// StreamDeviceConfig is the PCM configuration of a stream route. Name
// selects a malgo device by name substring; empty picks the default device.
type StreamDeviceConfig struct {
	Backend           string // "memory" or "malgo"
	Name              string `yaml:",omitempty"`
	Card              uint32
	Device            uint32
	Rate              uint32
	Format            string
	Channels          string
	PeriodSize        uint32   `mapstructure:"period_size" yaml:"period_size"`
	PeriodCount       uint32   `mapstructure:"period_count" yaml:"period_count"`
	SilencePrologMs   uint32   `mapstructure:"silence_prolog_ms" yaml:"silence_prolog_ms"`
	ApplicableDevices uint32   `mapstructure:"applicable_devices" yaml:"applicable_devices"`
	ApplicableFlags   uint32   `mapstructure:"applicable_flags" yaml:"applicable_flags"`
	SupportedRates    []uint32 `mapstructure:"supported_rates" yaml:"supported_rates,omitempty"`
	SupportedFormats  []string `mapstructure:"supported_formats" yaml:"supported_formats,omitempty"`
	SupportedChannels []string `mapstructure:"supported_channels" yaml:"supported_channels,omitempty"`
}

// ParameterConfig declares a typed parameter driven by a host key. Host
// values are translated to literals through Mapping, then parsed as Type
// (uint32, int32, bool or string).
type ParameterConfig struct {
	Key     string
	Name    string
	Type    string
	Default string
	Mapping []ParameterMappingConfig
}

// ParameterMappingConfig maps one host value to a parameter literal
type ParameterMappingConfig struct {
	Value   string
	Literal string
}
