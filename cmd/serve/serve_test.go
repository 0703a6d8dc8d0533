package serve

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/app"
	"github.com/tphakala/routemgr/internal/conf"
)

func TestRunAppliesAndWaits(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	settings, err := conf.Load("")
	require.NoError(t, err)
	settings.Events.Enabled = false

	a, err := app.New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, a, []string{"SelectedOutputDevices=speaker"}) }()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(a.Metrics.Routing.Reconsiders("changed")) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsOnBadAssignment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	settings, err := conf.Load("")
	require.NoError(t, err)
	settings.Events.Enabled = false

	a, err := app.New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Error(t, Run(t.Context(), a, []string{"AudioMode=not_a_mode"}))
}
