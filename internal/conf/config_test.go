package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedConfig(t *testing.T) {
	// Run from an empty directory so the search path finds nothing
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", settings.Log.Level)
	assert.Equal(t, 256, settings.Events.BufferSize)
	assert.Len(t, settings.Platform.Ports, 3)
	require.NotEmpty(t, settings.Platform.Routes)

	var media RouteConfig
	for _, r := range settings.Platform.Routes {
		if r.Name == "media_speaker" {
			media = r
		}
	}
	assert.Equal(t, "media_speaker", media.Name)
	assert.True(t, media.Stream)
	require.NotNil(t, media.Device)
	assert.Equal(t, uint32(48000), media.Device.Rate)
	assert.Equal(t, uint32(240), media.Device.PeriodSize)
	assert.Equal(t, "speaker", media.ApplicableWhen[0].Includes)

	require.Len(t, settings.Platform.Parameters, 2)
	assert.Equal(t, "tty_mode", settings.Platform.Parameters[0].Key)
	assert.Len(t, settings.Platform.Parameters[0].Mapping, 4)

	assert.Same(t, settings, GetSettings())
}

func TestLoadExplicitFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
log:
  level: debug
platform:
  ports:
    - name: bus
  routes:
    - name: r0
      direction: output
      source: bus
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ROUTEMGR_METRICS_LISTEN", "0.0.0.0:9999")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", settings.Log.Level)
	assert.Equal(t, "0.0.0.0:9999", settings.Metrics.Listen)
	assert.Len(t, settings.Platform.Routes, 1)
}

func TestLoadRejectsInvalidPlatform(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `
platform:
  routes:
    - name: r0
      direction: sideways
      source: nowhere
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routemgr.yaml")

	settings := &Settings{
		Log:    LogConfig{Level: "warn", Rotation: RotationDaily},
		Events: EventsSettings{Enabled: true, BufferSize: 8, Workers: 2},
		Platform: Platform{
			Ports: []PortConfig{{Name: "p0"}},
			Routes: []RouteConfig{
				{Name: "r0", Direction: "output", Source: "p0"},
			},
		},
	}
	require.NoError(t, SaveYAMLConfig(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.Log.Level)
	assert.Equal(t, 2, loaded.Events.Workers)
	assert.Equal(t, "p0", loaded.Platform.Routes[0].Source)

	// No temporary files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFlagsOverrideFileAndEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROUTEMGR_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("metrics-listen", "127.0.0.1:9102", "")
	flags.String("log-level", "info", "")
	flags.Bool("debug", false, "")
	require.NoError(t, flags.Parse([]string{"--metrics-listen", "127.0.0.1:9999", "--debug"}))

	settings, err := LoadWithFlags("", flags)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", settings.Metrics.Listen)
	assert.True(t, settings.Debug)
	// Unchanged flags leave the environment value in place
	assert.Equal(t, "warn", settings.Log.Level)
}
