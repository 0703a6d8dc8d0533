package routing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/errors"
)

func TestMasksArePerDirectionPowersOfTwo(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{})
	var out []uint32
	for i := range 3 {
		r, err := m.AddRoute(fmt.Sprintf("out%d", i), "", "", audio.Output)
		require.NoError(t, err)
		out = append(out, r.Mask())
	}
	assert.Equal(t, []uint32{1, 2, 4}, out)

	in, err := m.AddRoute("in0", "", "", audio.Input)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), in.Mask(), "input routes count on their own")

	next, err := m.AddRoute("out3", "", "", audio.Output)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), next.Mask())
}

func TestContextExhaustion(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	for i := range maxRoutesPerDirection {
		mask, err := ctx.NextMask(audio.Input)
		require.NoError(t, err)
		assert.Equal(t, uint32(1)<<i, mask)
	}
	_, err := ctx.NextMask(audio.Input)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
	assert.ErrorIs(t, err, ErrMaskExhausted)

	mask, err := ctx.NextMask(audio.Output)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), mask)
	assert.Equal(t, uint32(maxRoutesPerDirection), ctx.Count(audio.Input))
}

func TestAddPortFillsSourceThenDestination(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{})
	src, err := m.AddPort("src")
	require.NoError(t, err)
	dst, err := m.AddPort("dst")
	require.NoError(t, err)

	both, err := m.AddRoute("both", "src", "dst", audio.Output)
	require.NoError(t, err)
	assert.Equal(t, src, both.Source())
	assert.Equal(t, dst, both.Destination())

	// A lone destination lands in the source slot
	onlyDst, err := m.AddRoute("only_dst", "", "dst", audio.Input)
	require.NoError(t, err)
	assert.Equal(t, dst, onlyDst.Source())
	assert.Equal(t, noPort, onlyDst.Destination())

	none, err := m.AddRoute("none", "", "", audio.Output)
	require.NoError(t, err)
	assert.Equal(t, noPort, none.Source())
}

func TestResetAvailability(t *testing.T) {
	t.Parallel()

	m := newBusTopology(t, Config{})
	require.NoError(t, m.SetRouteApplicable("a", true))
	require.NoError(t, m.SetRouteApplicable("b", true))

	m.ResetAvailability()
	require.NoError(t, m.Prepare())

	a, b := mustRoute(t, m, "a"), mustRoute(t, m, "b")
	require.True(t, a.IsUsed())
	require.True(t, b.IsBlocked())

	before := map[string]bool{"a": a.IsUsed(), "b": b.IsUsed()}
	m.ResetAvailability()

	for _, r := range m.Routes() {
		assert.False(t, r.IsBlocked(), r.Name())
		assert.False(t, r.IsUsed(), r.Name())
		assert.Equal(t, before[r.Name()], r.PreviouslyUsed(), r.Name())
	}
	for _, p := range m.Ports() {
		assert.False(t, p.IsUsed(), p.Name())
		assert.False(t, p.IsBlocked(), p.Name())
		assert.Empty(t, p.UsedBy(), p.Name())
	}
}

func TestAvailableAndApplicable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		blocked, used, applicable bool
		wantAvailable             bool
		wantApplicable            bool
	}{
		{false, false, false, true, false},
		{false, false, true, true, true},
		{true, false, true, false, false},
		{false, true, true, false, false},
		{true, true, true, false, false},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("blocked=%t/used=%t/applicable=%t", tt.blocked, tt.used, tt.applicable)
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := newRoute(0, "r", audio.Output, 1)
			r.blocked, r.used, r.applicable = tt.blocked, tt.used, tt.applicable
			assert.Equal(t, tt.wantAvailable, r.Available())
			assert.Equal(t, !r.blocked && !r.used, r.Available())
			assert.Equal(t, tt.wantApplicable, r.IsApplicable())
		})
	}
}

func TestReflowRepathTruthTable(t *testing.T) {
	t.Parallel()

	for _, flow := range []bool{false, true} {
		for _, path := range []bool{false, true} {
			for _, prev := range []bool{false, true} {
				for _, used := range []bool{false, true} {
					name := fmt.Sprintf("flow=%t/path=%t/prev=%t/used=%t", flow, path, prev, used)
					t.Run(name, func(t *testing.T) {
						t.Parallel()
						r := newRoute(0, "r", audio.Output, 1)
						r.setStage(StageFlow, flow)
						r.setStage(StagePath, path)
						r.previouslyUsed, r.used = prev, used

						assert.Equal(t, prev && used && (flow || path), r.NeedReflow())
						assert.Equal(t, prev && used && path, r.NeedRepath())
						if r.NeedRepath() {
							assert.True(t, r.NeedReflow(), "repath implies reflow")
						}
						if !prev || !used {
							assert.False(t, r.NeedReflow())
							assert.False(t, r.NeedRepath())
						}
					})
				}
			}
		}
	}
}

func TestSetStageClears(t *testing.T) {
	t.Parallel()

	r := newRoute(0, "r", audio.Output, 1)
	r.previouslyUsed, r.used = true, true
	r.setStage(StagePath, true)
	require.True(t, r.NeedRepath())
	r.setStage(StagePath, false)
	assert.False(t, r.NeedRepath())
	assert.False(t, r.NeedReflow())
}

func TestAsStreamRoute(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{})
	plain, err := m.AddRoute("plain", "", "", audio.Output)
	require.NoError(t, err)
	assert.False(t, plain.IsStreamRoute())
	_, ok := plain.AsStreamRoute()
	assert.False(t, ok)

	sr, err := m.AddStreamRoute("pcm", "", "", audio.Output, StreamRouteConfig{SampleSpec: stereo48k})
	require.NoError(t, err)
	assert.True(t, sr.IsStreamRoute())
	view, ok := sr.Route.AsStreamRoute()
	require.True(t, ok)
	assert.Same(t, sr, view)
	assert.Equal(t, "hw:0,0", sr.Device().Name())
}
