package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/settings"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

type sink struct {
	mu      sync.Mutex
	replies []string
}

func (s *sink) Reply(_ uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, text)
}

type journal struct {
	events []string
}

func (j *journal) add(e string) { j.events = append(j.events, e) }

type closer struct {
	name string
	j    *journal
}

func (c *closer) Dispose() error {
	c.j.add("category " + c.name)
	return nil
}

type serverSettings struct {
	Directory string `yaml:"server_directory"`
	Port      int    `yaml:"port"`
}

type fakePlugin struct {
	info     plugin.Info
	j        *journal
	cats     []string
	initErr  error
	settings *serverSettings
	env      *plugin.Env
}

func (f *fakePlugin) Info() plugin.Info { return f.info }

func (f *fakePlugin) Register(r plugin.Registrar) error {
	for _, name := range f.cats {
		r.Category(plugin.CategorySpec{Name: name, Instance: &closer{name: name, j: f.j}}).
			Command(plugin.CommandSpec{Name: "run"}, func(context.Context, *plugin.Call) error { return nil })
	}
	return nil
}

func (f *fakePlugin) Initialize(_ context.Context, env *plugin.Env) error {
	f.j.add("init " + f.info.Name)
	f.env = env
	return f.initErr
}

func (f *fakePlugin) Dispose() error {
	f.j.add("dispose " + f.info.Name)
	return nil
}

type settingsPlugin struct {
	fakePlugin
}

func (s *settingsPlugin) DefaultSettings() any {
	s.settings = &serverSettings{Directory: "server", Port: 25565}
	return s.settings
}

func entry(id string, fs ...plugin.Factory) plugin.Entry {
	return plugin.Entry{ID: id, Factories: fs}
}

func newManager(t *testing.T, out plugin.Replier, entries ...plugin.Entry) (*PluginManager, *settings.Store) {
	t.Helper()
	store := settings.NewStore(filepath.Join(t.TempDir(), "Data"))
	pm := NewPluginManager(
		WithSettingsStore(store),
		WithReplies(out),
		WithBuiltins(entries),
	)
	t.Cleanup(func() { _ = pm.Close() })
	return pm, store
}

func TestLoadAllBuiltins(t *testing.T) {
	j := &journal{}
	out := &sink{}
	good := &fakePlugin{info: plugin.Info{Name: "Alpha", Version: "1.0.0", Author: "a"}, j: j, cats: []string{"one", "two"}}
	failing := &fakePlugin{info: plugin.Info{Name: "Broken"}, j: j, cats: []string{"x"}, initErr: errors.New("boom")}
	empty := &fakePlugin{info: plugin.Info{Name: "Empty"}, j: j}
	nameless := &fakePlugin{j: j, cats: []string{"y"}}
	last := &fakePlugin{info: plugin.Info{Name: "Omega", Description: "Last one."}, j: j, cats: []string{"z"}}

	pm, _ := newManager(t, out,
		entry("alpha", func() plugin.Plugin { return good }),
		entry("broken", func() plugin.Plugin { return failing }),
		entry("double", func() plugin.Plugin { return good }, func() plugin.Plugin { return good }),
		entry("empty", func() plugin.Plugin { return empty }),
		entry("nameless", func() plugin.Plugin { return nameless }),
		entry("omega", func() plugin.Plugin { return last }),
	)

	results := pm.LoadAll(context.Background(), "")
	require.Len(t, results, 6)

	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "boom")
	assert.ErrorIs(t, results[2].Err, ErrInvalidPlugin)
	assert.ErrorIs(t, results[2].Err, ErrEntryPoints)
	assert.ErrorIs(t, results[3].Err, ErrNoCategories)
	assert.ErrorIs(t, results[4].Err, ErrMissingMetadata)
	assert.NoError(t, results[5].Err)

	modules := pm.Modules()
	require.Len(t, modules, 2)
	assert.Equal(t, "alpha", modules[0].ID)
	assert.Equal(t, "omega", modules[1].ID)

	assert.Equal(t, []string{"[Alpha v1] by a", "[Omega v1] Last one."}, out.replies)

	list := pm.ListPlugins()
	require.Len(t, list, 2)
	assert.Equal(t, []string{"one", "two"}, list[0].Categories)
	assert.Equal(t, StateInitialized, list[0].State)
	assert.Equal(t, plugin.DefaultVersion, list[1].Version)

	// rejected plugins are disposed right away, categories first.
	rejected := []string{"init Alpha", "init Broken", "category x", "dispose Broken", "dispose Empty", "dispose ", "init Omega"}
	assert.Equal(t, rejected, j.events)

	require.NoError(t, pm.Close())
	assert.Equal(t, append(rejected,
		"category one", "category two", "dispose Alpha",
		"category z", "dispose Omega",
	), j.events)
	assert.Equal(t, StateDisposed, pm.ListPlugins()[0].State)

	// closing twice disposes nothing more.
	require.NoError(t, pm.Close())
	assert.Len(t, j.events, 12)
}

func TestLoadSettings(t *testing.T) {
	j := &journal{}
	p := &settingsPlugin{fakePlugin{info: plugin.Info{Name: "Server"}, j: j, cats: []string{"mc"}}}
	pm, store := newManager(t, &sink{}, entry("minecraft", func() plugin.Plugin { return p }))

	results := pm.LoadAll(context.Background(), "")
	require.NoError(t, results[0].Err)

	data, err := os.ReadFile(store.Path("minecraft"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_directory: server")
	assert.Equal(t, store.Dir("minecraft"), p.env.DataDir)
	assert.Same(t, p.settings, p.env.Settings)

	inst := pm.GetPluginInstance("minecraft")
	require.NotNil(t, inst)
	assert.Equal(t, StateInitialized, inst.State())
	assert.Nil(t, pm.GetPluginInstance("missing"))
}

func TestLoadExistingSettings(t *testing.T) {
	j := &journal{}
	p := &settingsPlugin{fakePlugin{info: plugin.Info{Name: "Server"}, j: j, cats: []string{"mc"}}}
	pm, store := newManager(t, &sink{}, entry("minecraft", func() plugin.Plugin { return p }))

	require.NoError(t, os.MkdirAll(store.Dir("minecraft"), 0o755))
	require.NoError(t, os.WriteFile(store.Path("minecraft"), []byte("server_directory: /srv/mc\n"), 0o644))

	results := pm.LoadAll(context.Background(), "")
	require.NoError(t, results[0].Err)
	assert.Equal(t, "/srv/mc", p.settings.Directory)
	assert.Equal(t, 25565, p.settings.Port)
}

func TestLoadScripts(t *testing.T) {
	dir := t.TempDir()
	script := `
host.plugin{ name = "Echo" }
settings = { prefix = ">" }
host.category{ name = "echo" }
host.command("echo", { name = "say", params = { { name = "text", type = "rest" } } }, function(ctx, text)
  return ctx.settings.prefix .. table.concat(text, " ")
end)
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.lua"), []byte(script), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bundle"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle", LuaEntry),
		[]byte(`host.plugin{ name = "Bundle" } host.category{ name = "bundle" } host.command("bundle", { name = "x" }, function() end)`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte(`host.category{ name = "nope" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Data"), 0o755))

	pm, store := newManager(t, &sink{})
	results := pm.LoadAll(context.Background(), dir)

	byID := make(map[string]LoadResult)
	for _, r := range results {
		byID[r.ID] = r
	}
	require.Len(t, byID, 3)
	assert.NoError(t, byID["echo"].Err)
	assert.Equal(t, SourceLua, byID["echo"].Source)
	assert.NoError(t, byID["bundle"].Err)
	assert.ErrorIs(t, byID["broken"].Err, ErrInvalidPlugin)

	_, err := os.Stat(store.Path("echo"))
	assert.NoError(t, err)

	inst := pm.GetPluginInstance("echo")
	require.NotNil(t, inst)
	cat, ok := inst.Categories.Lookup("echo")
	require.True(t, ok)
	cmd, ok := cat.Lookup("say")
	require.True(t, ok)

	out := &sink{}
	require.NoError(t, cmd.Handler(context.Background(), plugin.NewCall(5, "echo", "say", plugin.Args{[]string{"a", "b"}}, out)))
	assert.Equal(t, []string{">a b"}, out.replies)
}

func TestLoadDuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.lua"),
		[]byte(`host.plugin{ name = "Dup" } host.category{ name = "d" } host.command("d", { name = "x" }, function() end)`), 0o644))

	j := &journal{}
	good := &fakePlugin{info: plugin.Info{Name: "Alpha"}, j: j, cats: []string{"one"}}
	pm, _ := newManager(t, &sink{}, entry("alpha", func() plugin.Plugin { return good }))

	results := pm.LoadAll(context.Background(), dir)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrDuplicateID)
	assert.Len(t, pm.Modules(), 1)
}

func TestLoadAfterClose(t *testing.T) {
	j := &journal{}
	good := &fakePlugin{info: plugin.Info{Name: "Alpha"}, j: j, cats: []string{"one"}}
	pm, _ := newManager(t, &sink{}, entry("alpha", func() plugin.Plugin { return good }))

	require.NoError(t, pm.Close())
	results := pm.LoadAll(context.Background(), "")
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Empty(t, j.events)
}
