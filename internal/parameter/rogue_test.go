package parameter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/routemgr/internal/errors"
)

var ttyMapping = []Mapping{
	{Value: "tty_off", Literal: "0"},
	{Value: "tty_vco", Literal: "1"},
	{Value: "tty_hco", Literal: "2"},
	{Value: "tty_full", Literal: "3"},
}

func TestRogueSetAndGet(t *testing.T) {
	t.Parallel()

	store := NewStore()
	tty := NewRogue("tty_mode", "TtyDirection", "0", ttyMapping, Uint32, store)

	_, err := tty.Get()
	require.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, tty.Set("tty_hco"))
	v, err := tty.TypedValue()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)

	host, err := tty.Get()
	require.NoError(t, err)
	assert.Equal(t, "tty_hco", host)

	raw, ok := store.Get("TtyDirection")
	require.True(t, ok)
	assert.Equal(t, uint32(2), raw)
}

func TestRogueRejectsUnknownValue(t *testing.T) {
	t.Parallel()

	tty := NewRogue("tty_mode", "TtyDirection", "0", ttyMapping, Uint32, NewStore())
	require.NoError(t, tty.Set("tty_full"))

	err := tty.Set("tty_loud")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownValue)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	host, err := tty.Get()
	require.NoError(t, err)
	assert.Equal(t, "tty_full", host, "prior value kept")
}

func TestRogueSyncWritesDefault(t *testing.T) {
	t.Parallel()

	store := NewStore()
	nrec := NewRogue("bt_headset_nrec", "BtHeadsetNrEc", "true", []Mapping{
		{Value: "on", Literal: "true"},
		{Value: "off", Literal: "false"},
	}, Bool, store)

	require.NoError(t, nrec.Sync())
	v, err := nrec.TypedValue()
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, nrec.Set("off"))
	host, err := nrec.Get()
	require.NoError(t, err)
	assert.Equal(t, "off", host)

	require.NoError(t, nrec.Sync())
	host, err = nrec.Get()
	require.NoError(t, err)
	assert.Equal(t, "on", host)
}

func TestRogueConversionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		param Parameter
	}{
		{"uint32 from word", NewRogue("k", "P", "zero", []Mapping{{Value: "a", Literal: "zero"}}, Uint32, NewStore())},
		{"int32 overflow", NewRogue("k", "P", "4294967296", []Mapping{{Value: "a", Literal: "4294967296"}}, Int32, NewStore())},
		{"bool from word", NewRogue("k", "P", "maybe", []Mapping{{Value: "a", Literal: "maybe"}}, Bool, NewStore())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.param.Set("a"), ErrConversion)
			assert.ErrorIs(t, tt.param.Sync(), ErrConversion)
		})
	}
}

func TestSharedStore(t *testing.T) {
	t.Parallel()

	store := NewStore()
	a := NewRogue("a", "Alpha", "x", []Mapping{{Value: "x", Literal: "x"}}, String, store)
	b := NewRogue("b", "Beta", "-1", []Mapping{{Value: "neg", Literal: "-1"}}, Int32, store)
	require.NoError(t, a.Sync())
	require.NoError(t, b.Sync())
	assert.Equal(t, 2, store.Len())

	v, err := b.TypedValue()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)

	store.Flush()
	assert.Zero(t, store.Len())
	_, err = a.Get()
	assert.ErrorIs(t, err, ErrNotSet)
}
