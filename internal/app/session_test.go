package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/platform"
)

func TestParseAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{in: "AudioMode=in_call", wantKey: "AudioMode", wantValue: "in_call"},
		{in: " tty_mode = tty_full ", wantKey: "tty_mode", wantValue: "tty_full"},
		{in: "SelectedOutputDevices=", wantKey: "SelectedOutputDevices", wantValue: ""},
		{in: "SelectedOutputDevices=speaker|hdmi", wantKey: "SelectedOutputDevices", wantValue: "speaker|hdmi"},
		{in: "AudioMode", wantErr: true},
		{in: "=in_call", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			key, value, err := ParseAssignment(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestApplyAssignmentsAndWriteState(t *testing.T) {
	settings := loadSettings(t)
	settings.Events.Enabled = false

	a, err := New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	pl, err := a.NewPlatform(nil)
	require.NoError(t, err)

	plan, err := ApplyAssignments(t.Context(), pl, []string{
		"SelectedOutputDevices=speaker",
		"tty_mode=tty_full",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"media_speaker"}, plan.Enabled)

	var out bytes.Buffer
	require.NoError(t, WriteState(&out, pl))
	text := out.String()
	assert.Contains(t, text, "SelectedOutputDevices")
	assert.Contains(t, text, "tty_mode")
	assert.Regexp(t, `media_speaker\s+output\s+0x2\s+true\s+true\s+false\s+true`, text)

	_, err = ApplyAssignments(t.Context(), pl, []string{"no_such_key=1"})
	assert.ErrorIs(t, err, platform.ErrUnknownParameter)

	_, err = ApplyAssignments(t.Context(), pl, []string{"broken"})
	assert.Error(t, err)
}
