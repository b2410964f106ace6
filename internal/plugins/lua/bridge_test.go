package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeRoundTrip(t *testing.T) {
	L := newState()
	defer L.Close()

	in := map[string]any{
		"name":  "srv",
		"port":  int64(25565),
		"ratio": 0.75,
		"on":    true,
		"tags":  []any{"a", "b"},
		"nested": map[string]any{
			"depth": int64(2),
		},
	}

	out := toGo(toLua(L, in))
	assert.Equal(t, in, out)
}

func TestBridgeScriptValues(t *testing.T) {
	L := newState()
	defer L.Close()

	require.NoError(t, L.DoString(`v = { list = {1, 2, 3}, empty = {}, mixed = { 1, x = "y" } }`))
	v, ok := toGo(L.GetGlobal("v")).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, v["list"])
	assert.Equal(t, map[string]any{}, v["empty"])
	assert.Equal(t, map[string]any{"1": int64(1), "x": "y"}, v["mixed"])
}

func TestBridgeCycle(t *testing.T) {
	L := newState()
	defer L.Close()

	require.NoError(t, L.DoString(`t = {} t.self = t`))
	v, ok := toGo(L.GetGlobal("t")).(map[string]any)
	require.True(t, ok)
	assert.Nil(t, v["self"])
}
