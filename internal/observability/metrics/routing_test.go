package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingMetricsRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewRoutingMetrics(registry)
	require.NoError(t, err)

	m.RecordReconsider("changed", 2*time.Millisecond)
	m.RecordReconsider("changed", time.Millisecond)
	m.RecordReconsider("unchanged", time.Microsecond)
	assert.InDelta(t, 2, testutil.ToFloat64(m.reconsiderTotal.WithLabelValues("changed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reconsiderTotal.WithLabelValues("unchanged")), 0)

	m.SetRoutesUsed("output", 3)
	m.SetRoutesUsed("output", 1)
	assert.InDelta(t, 1, testutil.ToFloat64(m.routesUsed.WithLabelValues("output")), 0)

	m.RecordRouteTransition("media", TransitionEnabled)
	m.RecordRouteTransition("media", TransitionRepath)
	assert.InDelta(t, 1, testutil.ToFloat64(m.routeTransitions.WithLabelValues("media", TransitionRepath)), 0)

	m.RecordStreamAttach(StatusError)
	assert.InDelta(t, 1, testutil.ToFloat64(m.streamAttach.WithLabelValues(StatusError)), 0)

	m.RecordConfigError("unknown_route")
	m.RecordContentionViolation()
	m.RecordEventDropped()
	assert.InDelta(t, 1, testutil.ToFloat64(m.configErrors.WithLabelValues("unknown_route")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.contentionViolations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.eventsDropped), 0)

	// Every family is exposed through the registry
	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestRoutingMetricsDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewRoutingMetrics(registry)
	require.NoError(t, err)

	_, err = NewRoutingMetrics(registry)
	assert.Error(t, err)
}
