package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
	"github.com/andrei-cloud/go_cmdhost/pkg/pluginsdk"
)

const (
	manifestOffset = 1024
	responseOffset = 2048
	inputOffset    = 4096
)

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func section(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(content)))...)
	return append(out, content...)
}

func wasmName(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func body(code ...byte) []byte {
	b := append([]byte{0x00}, code...)
	b = append(b, 0x0b)
	return append(uleb(uint64(len(b))), b...)
}

// guestModule assembles a module whose Manifest returns manifest and whose
// Execute ignores its input and returns response.
func guestModule(manifest, response string) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	out = append(out, section(1, []byte{
		0x03,
		0x60, 0x00, 0x01, 0x7e,
		0x60, 0x01, 0x7f, 0x01, 0x7f,
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	})...)
	out = append(out, section(3, []byte{0x03, 0x01, 0x00, 0x02})...)
	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...)

	var exports []byte
	exports = append(exports, 0x04)
	exports = append(append(exports, wasmName("memory")...), 0x02, 0x00)
	exports = append(append(exports, wasmName("Alloc")...), 0x00, 0x00)
	exports = append(append(exports, wasmName("Manifest")...), 0x00, 0x01)
	exports = append(append(exports, wasmName("Execute")...), 0x00, 0x02)
	out = append(out, section(7, exports)...)

	packed := func(ptr, n int) []byte {
		return append([]byte{0x42}, sleb(int64(pluginsdk.PackResult(uint32(ptr), uint32(n))))...)
	}
	code := []byte{0x03}
	code = append(code, body(append([]byte{0x41}, sleb(inputOffset)...)...)...)
	code = append(code, body(packed(manifestOffset, len(manifest))...)...)
	code = append(code, body(packed(responseOffset, len(response))...)...)
	out = append(out, section(10, code)...)

	segment := func(offset int, data string) []byte {
		s := append([]byte{0x00, 0x41}, sleb(int64(offset))...)
		s = append(s, 0x0b)
		return append(s, wasmName(data)...)
	}
	data := []byte{0x02}
	data = append(data, segment(manifestOffset, manifest)...)
	data = append(data, segment(responseOffset, response)...)
	out = append(out, section(11, data)...)

	return out
}

func newSet(t *testing.T, p plugin.Plugin) *registry.Set {
	t.Helper()
	set := registry.NewSet()
	require.NoError(t, p.Register(set))
	require.NoError(t, set.Err())
	return set
}

const pingManifest = `{"plugin":{"name":"Pinger","version":"0.1.0","author":"ops"},` +
	`"settings":{"greeting":"hi"},` +
	`"categories":[{"name":"ping","description":"Ping.","commands":[{"name":"pong","params":[{"name":"n","type":"int","optional":true}]}]}]}`

func TestWasmOpenBytes(t *testing.T) {
	ctx := context.Background()
	w := NewWasmOpener()
	t.Cleanup(func() { _ = w.Close(ctx) })

	p, err := w.OpenBytes(ctx, "ping", guestModule(pingManifest, `{"replies":["pong","again"]}`))
	require.NoError(t, err)
	assert.Equal(t, plugin.Info{Name: "Pinger", Version: "0.1.0", Author: "ops"}, p.Info())

	sp, ok := p.(plugin.SettingsProvider)
	require.True(t, ok)
	defaults, ok := sp.DefaultSettings().(*map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", (*defaults)["greeting"])

	set := newSet(t, p)
	cat, ok := set.Lookup("ping")
	require.True(t, ok)
	cmd, ok := cat.Lookup("pong")
	require.True(t, ok)
	assert.Equal(t, "/ping pong [n:int]", cmd.Help())

	require.NoError(t, p.Initialize(ctx, &plugin.Env{ID: "ping"}))

	out := &sink{}
	require.NoError(t, cmd.Handler(ctx, plugin.NewCall(9, "ping", "pong", plugin.Args{int64(3)}, out)))
	assert.Equal(t, []string{"pong", "again"}, out.replies)

	require.NoError(t, p.Dispose())
	assert.NoError(t, p.Dispose())
	assert.Error(t, cmd.Handler(ctx, plugin.NewCall(9, "ping", "pong", nil, out)))
}

func TestWasmGuestError(t *testing.T) {
	ctx := context.Background()
	w := NewWasmOpener()
	t.Cleanup(func() { _ = w.Close(ctx) })

	p, err := w.OpenBytes(ctx, "ping", guestModule(pingManifest, `{"replies":["partial"],"error":"no dice"}`))
	require.NoError(t, err)

	set := newSet(t, p)
	cat, _ := set.Lookup("ping")
	cmd, _ := cat.Lookup("pong")

	out := &sink{}
	err = cmd.Handler(ctx, plugin.NewCall(1, "ping", "pong", nil, out))
	assert.EqualError(t, err, "no dice")
	assert.Equal(t, []string{"partial"}, out.replies)
}

func TestWasmRejectsModules(t *testing.T) {
	tests := []struct {
		name   string
		module []byte
		want   error
	}{
		{name: "bad manifest", module: guestModule(`{not json}`, `{}`), want: ErrBadManifest},
		{name: "empty manifest", module: guestModule(``, `{}`), want: ErrBadManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			w := NewWasmOpener()
			defer w.Close(ctx)

			_, err := w.OpenBytes(ctx, "bad", tt.module)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	ctx := context.Background()
	w := NewWasmOpener()
	defer w.Close(ctx)
	_, err := w.OpenBytes(ctx, "garbage", []byte("not wasm"))
	assert.Error(t, err)
}

func TestLoadWasmFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ping.wasm"),
		guestModule(pingManifest, `{"replies":["pong"]}`), 0o644))

	out := &sink{}
	pm, store := newManager(t, out)
	results := pm.LoadAll(context.Background(), dir)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, SourceWasm, results[0].Source)
	assert.Equal(t, []string{"[Pinger v0.1] by ops"}, out.replies)

	data, err := os.ReadFile(store.Path("ping"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "greeting: hi")

	require.NoError(t, pm.Close())
	assert.Equal(t, StateDisposed, pm.ListPlugins()[0].State)
}
