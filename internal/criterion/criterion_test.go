package criterion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/errors"
)

// newTestManager registers a mode (exclusive) and an output device set (inclusive)
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(nil)

	require.NoError(t, m.AddType("Mode", false))
	require.NoError(t, m.AddTypeValue("Mode", "normal", 0))
	require.NoError(t, m.AddTypeValue("Mode", "ringtone", 1))
	require.NoError(t, m.AddTypeValue("Mode", "in_call", 2))

	require.NoError(t, m.AddType("Devices", true))
	require.NoError(t, m.AddTypeValue("Devices", "speaker", 0x1))
	require.NoError(t, m.AddTypeValue("Devices", "headset", 0x2))
	require.NoError(t, m.AddTypeValue("Devices", "hdmi", 0x4))

	require.NoError(t, m.AddCriterion("AudioMode", "Mode", "normal"))
	require.NoError(t, m.AddCriterion("Output", "Devices", ""))
	return m
}

func TestTypeRegistration(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{"duplicate type", ErrDuplicate, func() error { return m.AddType("Mode", false) }},
		{"duplicate literal", ErrDuplicate, func() error { return m.AddTypeValue("Mode", "normal", 9) }},
		{"duplicate value", ErrDuplicate, func() error { return m.AddTypeValue("Mode", "silent", 1) }},
		{"unknown type", ErrUnknownType, func() error { return m.AddTypeValue("Nope", "x", 1) }},
		{"inclusive needs one bit", ErrInvalidValue, func() error { return m.AddTypeValue("Devices", "both", 0x3) }},
		{"inclusive zero", ErrInvalidValue, func() error { return m.AddTypeValue("Devices", "nothing", 0) }},
		{"reserved none", ErrInvalidValue, func() error { return m.AddTypeValue("Devices", NoneLiteral, 0x8) }},
		{"duplicate criterion", ErrDuplicate, func() error { return m.AddCriterion("Output", "Devices", "") }},
		{"criterion of unknown type", ErrUnknownType, func() error { return m.AddCriterion("X", "Nope", "") }},
		{"bad default", ErrInvalidValue, func() error { return m.AddCriterion("Y", "Mode", "loud") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseAndFormat(t *testing.T) {
	t.Parallel()

	inclusive := &Type{name: "Devices", inclusive: true}
	require.NoError(t, inclusive.addValue("speaker", 0x1))
	require.NoError(t, inclusive.addValue("headset", 0x2))
	exclusive := &Type{name: "Mode"}
	require.NoError(t, exclusive.addValue("normal", 0))
	require.NoError(t, exclusive.addValue("in_call", 2))

	tests := []struct {
		name    string
		typ     *Type
		in      string
		want    uint32
		wantErr bool
		format  string
	}{
		{"single bit", inclusive, "speaker", 0x1, false, "speaker"},
		{"two bits", inclusive, "headset|speaker", 0x3, false, "speaker|headset"},
		{"spaces", inclusive, " speaker | headset ", 0x3, false, "speaker|headset"},
		{"empty set", inclusive, "", 0, false, NoneLiteral},
		{"none", inclusive, NoneLiteral, 0, false, NoneLiteral},
		{"unknown bit literal", inclusive, "speaker|hdmi", 0, true, ""},
		{"exclusive", exclusive, "in_call", 2, false, "in_call"},
		{"exclusive zero", exclusive, "normal", 0, false, "normal"},
		{"exclusive unknown", exclusive, "ringtone", 0, true, ""},
		{"exclusive rejects sets", exclusive, "normal|in_call", 0, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.typ.Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryCriterion))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.format, tt.typ.Format(got))
		})
	}

	assert.Equal(t, "speaker|0x8", inclusive.Format(0x9))
	assert.Equal(t, "7", exclusive.Format(7))
}

func TestSetParameter(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	changed, err := m.SetParameter("AudioMode", "in_call")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.SetParameter("AudioMode", "in_call")
	require.NoError(t, err)
	assert.False(t, changed, "same value")

	_, err = m.SetParameter("AudioMode", "karaoke")
	require.ErrorIs(t, err, ErrInvalidValue)
	lit, err := m.Literal("AudioMode")
	require.NoError(t, err)
	assert.Equal(t, "in_call", lit, "rejected value keeps prior state")

	_, err = m.SetParameter("Volume", "11")
	require.ErrorIs(t, err, ErrUnknownCriterion)
	assert.True(t, errors.IsNotFound(err))

	changed, err = m.SetParameter("Output", "speaker|hdmi")
	require.NoError(t, err)
	assert.True(t, changed)
	v, err := m.Value("Output")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5), v)
}

func TestSetValue(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	_, err := m.SetValue("Output", 0x8)
	require.ErrorIs(t, err, ErrInvalidValue, "undeclared bit")
	_, err = m.SetValue("AudioMode", 5)
	require.ErrorIs(t, err, ErrInvalidValue, "undeclared exclusive value")

	changed, err := m.SetValue("Output", 0x6)
	require.NoError(t, err)
	assert.True(t, changed)
	lit, err := m.Literal("Output")
	require.NoError(t, err)
	assert.Equal(t, "headset|hdmi", lit)

	m.ResetDefaults()
	lit, err = m.Literal("Output")
	require.NoError(t, err)
	assert.Equal(t, NoneLiteral, lit)

	states := m.Criteria()
	require.Len(t, states, 2)
	assert.Equal(t, "AudioMode", states[0].Name)
	assert.Equal(t, "normal", states[0].Literal)
	assert.True(t, states[1].Inclusive)
	assert.True(t, m.Has("Output"))
	assert.False(t, m.Has("Input"))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	_, err := m.SetParameter("AudioMode", "in_call")
	require.NoError(t, err)
	_, err = m.SetParameter("Output", "speaker|headset")
	require.NoError(t, err)

	tests := []struct {
		name    string
		rules   RuleSet
		want    bool
		wantErr error
	}{
		{"empty set holds", nil, true, nil},
		{"is", RuleSet{{"AudioMode", OpIs, "in_call"}}, true, nil},
		{"is not", RuleSet{{"AudioMode", OpIs, "normal"}}, false, nil},
		{"inclusive is compares the whole set", RuleSet{{"Output", OpIs, "speaker"}}, false, nil},
		{"includes", RuleSet{{"Output", OpIncludes, "headset"}}, true, nil},
		{"includes all", RuleSet{{"Output", OpIncludes, "headset|speaker"}}, true, nil},
		{"includes missing", RuleSet{{"Output", OpIncludes, "hdmi"}}, false, nil},
		{"excludes", RuleSet{{"Output", OpExcludes, "hdmi"}}, true, nil},
		{"excludes present", RuleSet{{"Output", OpExcludes, "speaker|hdmi"}}, false, nil},
		{"conjunction", RuleSet{{"AudioMode", OpIs, "in_call"}, {"Output", OpIncludes, "speaker"}}, true, nil},
		{"conjunction fails", RuleSet{{"AudioMode", OpIs, "in_call"}, {"Output", OpIncludes, "hdmi"}}, false, nil},
		{"unknown criterion", RuleSet{{"Volume", OpIs, "1"}}, false, ErrUnknownCriterion},
		{"unknown literal", RuleSet{{"Output", OpIncludes, "bluetooth"}}, false, ErrInvalidValue},
		{"includes on exclusive", RuleSet{{"AudioMode", OpIncludes, "in_call"}}, false, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := m.Evaluate(tt.rules)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleSetString(t *testing.T) {
	t.Parallel()

	rs := RuleSet{{"AudioMode", OpIs, "in_call"}, {"Output", OpExcludes, "hdmi"}}
	assert.Equal(t, "AudioMode is in_call && Output excludes hdmi", rs.String())
}
