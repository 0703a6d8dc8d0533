package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPlatform() Platform {
	return Platform{
		Ports:      []PortConfig{{Name: "a"}, {Name: "b"}},
		PortGroups: []PortGroupConfig{{Name: "bus", Members: []string{"a", "b"}}},
		CriterionTypes: []CriterionTypeConfig{
			{Name: "Mode", Values: []CriterionValueConfig{{Literal: "normal", Value: 0}, {Literal: "call", Value: 1}}},
			{Name: "Devices", Inclusive: true, Values: []CriterionValueConfig{{Literal: "spk", Value: 1}}},
		},
		Criteria: []CriterionConfig{
			{Name: "Mode", Type: "Mode", Default: "normal"},
			{Name: "Out", Type: "Devices"},
		},
		Routes: []RouteConfig{
			{Name: "r0", Direction: "output", Source: "a", ApplicableWhen: []RuleConfig{{Criterion: "Out", Includes: "spk"}}},
			{Name: "r1", Direction: "input", Destination: "b", Stream: true, Device: &StreamDeviceConfig{Format: "pcm16", Channels: "mono"}},
		},
		Parameters: []ParameterConfig{
			{Key: "tty", Name: "Tty", Type: "uint32", Default: "0", Mapping: []ParameterMappingConfig{{Value: "off", Literal: "0"}}},
		},
	}
}

func TestValidatePlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Platform)
		want   int
	}{
		{"valid", func(p *Platform) {}, 0},
		{"duplicate port", func(p *Platform) { p.Ports = append(p.Ports, PortConfig{Name: "a"}) }, 1},
		{"unknown group member", func(p *Platform) { p.PortGroups[0].Members = append(p.PortGroups[0].Members, "zz") }, 1},
		{"unknown criterion type", func(p *Platform) { p.Criteria[0].Type = "Nope" }, 1},
		{"duplicate route", func(p *Platform) { p.Routes = append(p.Routes, RouteConfig{Name: "r0", Direction: "output"}) }, 1},
		{"bad direction", func(p *Platform) { p.Routes[0].Direction = "up" }, 1},
		{"unknown port", func(p *Platform) { p.Routes[0].Source = "zz" }, 1},
		{"rule on unknown criterion", func(p *Platform) { p.Routes[0].ApplicableWhen[0].Criterion = "Zz" }, 1},
		{"rule with two operators", func(p *Platform) { p.Routes[0].ApplicableWhen[0].Is = "spk" }, 1},
		{"includes on exclusive", func(p *Platform) {
			p.Routes[0].ApplicableWhen = []RuleConfig{{Criterion: "Mode", Includes: "call"}}
		}, 1},
		{"device on plain route", func(p *Platform) { p.Routes[0].Device = &StreamDeviceConfig{} }, 1},
		{"bad device format", func(p *Platform) { p.Routes[1].Device.Format = "mp3" }, 1},
		{"bad backend", func(p *Platform) { p.Routes[1].Device.Backend = "jack" }, 1},
		{"parameter type", func(p *Platform) { p.Parameters[0].Type = "float" }, 1},
		{"parameter key is a criterion", func(p *Platform) { p.Parameters[0].Key = "Mode" }, 1},
		{"parameter without mapping", func(p *Platform) { p.Parameters[0].Mapping = nil }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validPlatform()
			tt.mutate(&p)
			assert.Len(t, ValidatePlatform(&p), tt.want)
		})
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	base := func() *Settings {
		return &Settings{
			Log:     LogConfig{Level: "info", Rotation: RotationDaily},
			Metrics: MetricsSettings{Listen: "127.0.0.1:9102"},
			Events:  EventsSettings{Enabled: true, BufferSize: 16, Workers: 1},
		}
	}

	assert.NoError(t, ValidateSettings(base()))

	s := base()
	s.Log.Level = "loud"
	assert.Error(t, ValidateSettings(s))

	s = base()
	s.Log.Enabled = true
	s.Log.Path = "x.log"
	s.Log.Rotation = RotationSize
	assert.Error(t, ValidateSettings(s), "size rotation needs max_size")

	s = base()
	s.Metrics.Enabled = true
	s.Metrics.Listen = "no-port"
	assert.Error(t, ValidateSettings(s))

	s = base()
	s.Telemetry.Enabled = true
	assert.Error(t, ValidateSettings(s))

	s = base()
	s.Events.Workers = 0
	assert.Error(t, ValidateSettings(s))
}
