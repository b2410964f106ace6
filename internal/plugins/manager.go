package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/internal/plugins/lua"
	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	"github.com/andrei-cloud/go_cmdhost/internal/settings"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// LuaEntry is the script looked up inside a plugin directory.
const LuaEntry = "plugin.lua"

// ErrDuplicateID is returned for a module whose id is already loaded.
var ErrDuplicateID = errors.New("duplicate module id")

// PluginManager loads plugins once and owns them until Close.
type PluginManager struct {
	store     *settings.Store
	replies   plugin.Replier
	builtins  []plugin.Entry
	openers   map[string]Opener
	wasm      *WasmOpener
	instances []*PluginInstance
	registry  *PluginRegistry
	closed    bool
	mu        sync.RWMutex
}

// Option configures a PluginManager.
type Option func(*PluginManager)

// WithSettingsStore sets where plugin data directories live.
func WithSettingsStore(s *settings.Store) Option {
	return func(pm *PluginManager) {
		pm.store = s
	}
}

// WithReplies sets the sink receiving initialization banners and plugin
// messages sent outside a command call.
func WithReplies(r plugin.Replier) Option {
	return func(pm *PluginManager) {
		pm.replies = r
	}
}

// WithBuiltins replaces the compiled-in plugin table.
func WithBuiltins(entries []plugin.Entry) Option {
	return func(pm *PluginManager) {
		pm.builtins = entries
	}
}

// WithBuiltin adds one compiled-in plugin after the registered ones.
func WithBuiltin(id string, f plugin.Factory) Option {
	return func(pm *PluginManager) {
		pm.builtins = append(pm.builtins, plugin.Entry{ID: id, Factories: []plugin.Factory{f}})
	}
}

// WithOpener handles module files with extension ext, including the dot.
func WithOpener(ext string, o Opener) Option {
	return func(pm *PluginManager) {
		pm.openers[strings.ToLower(ext)] = o
	}
}

// NewPluginManager returns a PluginManager ready to load plugins.
func NewPluginManager(opts ...Option) *PluginManager {
	pm := &PluginManager{
		store:    settings.NewStore(filepath.Join("Plugins", "Data")),
		replies:  discard{},
		builtins: plugin.Registered(),
		openers:  make(map[string]Opener),
		wasm:     NewWasmOpener(),
		registry: NewPluginRegistry(),
	}
	pm.openers[".lua"] = OpenerFunc(lua.Open)
	pm.openers[".wasm"] = pm.wasm

	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

type candidate struct {
	id     string
	source string
	path   string
	open   func(ctx context.Context) (plugin.Plugin, error)
}

// LoadAll loads built-in plugins sorted by id, then the modules of dir in
// directory order. A failing module is reported in its result and skipped.
func (pm *PluginManager) LoadAll(ctx context.Context, dir string) []LoadResult {
	candidates := pm.builtinCandidates()
	candidates = append(candidates, pm.scan(dir)...)

	results := make([]LoadResult, 0, len(candidates))
	for _, c := range candidates {
		res := LoadResult{ID: c.id, Source: c.source, Path: c.path}
		inst, err := pm.load(ctx, c)
		if inst != nil {
			res.Info = inst.Info
		}
		if err != nil {
			res.Err = err
			log.Error().
				Str("event", "plugin_load_failed").
				Str("plugin", c.id).
				Str("source", c.source).
				Err(err).
				Msg("failed to load plugin")
		}
		results = append(results, res)
	}

	return results
}

func (pm *PluginManager) builtinCandidates() []candidate {
	out := make([]candidate, 0, len(pm.builtins))
	for _, e := range pm.builtins {
		out = append(out, candidate{
			id:     e.ID,
			source: SourceBuiltin,
			open: func(context.Context) (plugin.Plugin, error) {
				if len(e.Factories) != 1 {
					return nil, fmt.Errorf("%w: found %d", ErrEntryPoints, len(e.Factories))
				}
				p := e.Factories[0]()
				if p == nil {
					return nil, fmt.Errorf("%w: factory returned nil", ErrEntryPoints)
				}
				return p, nil
			},
		})
	}
	return out
}

func (pm *PluginManager) scan(dir string) []candidate {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Str("dir", dir).Msg("failed to read plugin directory")
		}
		return nil
	}

	var out []candidate
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		ext := strings.ToLower(filepath.Ext(name))
		id := strings.TrimSuffix(name, filepath.Ext(name))

		if entry.IsDir() {
			script := filepath.Join(path, LuaEntry)
			if _, err := os.Stat(script); err != nil {
				continue
			}
			ext, id, path = ".lua", name, script
		}

		opener, ok := pm.openers[ext]
		if !ok {
			continue
		}
		out = append(out, candidate{
			id:     id,
			source: strings.TrimPrefix(ext, "."),
			path:   path,
			open: func(ctx context.Context) (plugin.Plugin, error) {
				return opener.Open(ctx, id, path)
			},
		})
	}
	return out
}

// load runs every loading step for one module.
func (pm *PluginManager) load(ctx context.Context, c candidate) (*PluginInstance, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.closed {
		return nil, errors.New("plugin manager is closed")
	}
	if _, ok := pm.registry.Get(c.id); ok {
		return nil, invalid(c.id, ErrDuplicateID)
	}

	p, err := c.open(ctx)
	if err != nil {
		return nil, invalid(c.id, err)
	}
	inst := &PluginInstance{ID: c.id, Source: c.source, Path: c.path, Plugin: p, state: StateLoaded}

	info, err := normalizeInfo(p.Info())
	if err != nil {
		return inst, pm.abandon(inst, invalid(c.id, err))
	}
	inst.Info = info

	set := registry.NewSet()
	if err := p.Register(set); err != nil {
		return inst, pm.abandon(inst, invalid(c.id, err))
	}
	if err := set.Err(); err != nil {
		return inst, pm.abandon(inst, invalid(c.id, err))
	}
	if len(set.Categories()) == 0 {
		return inst, pm.abandon(inst, invalid(c.id, ErrNoCategories))
	}
	inst.Categories = set

	if inst.DataDir, err = pm.store.EnsureDir(c.id); err != nil {
		return inst, pm.abandon(inst, err)
	}

	if sp, ok := p.(plugin.SettingsProvider); ok {
		if target := sp.DefaultSettings(); target != nil {
			created, err := pm.store.LoadOrCreate(c.id, target)
			if err != nil {
				return inst, pm.abandon(inst, fmt.Errorf("settings: %w", err))
			}
			if created {
				log.Info().
					Str("event", "settings_created").
					Str("plugin", c.id).
					Str("path", pm.store.Path(c.id)).
					Msg("created default settings")
			}
			inst.Settings = target
		}
	}

	env := &plugin.Env{
		ID:       c.id,
		DataDir:  inst.DataDir,
		Settings: inst.Settings,
		Replies:  pm.replies,
	}
	if err := p.Initialize(ctx, env); err != nil {
		return inst, pm.abandon(inst, fmt.Errorf("initialize: %w", err))
	}
	inst.state = StateInitialized

	pm.instances = append(pm.instances, inst)
	pm.registry.Register(inst.info())

	log.Info().
		Str("event", "plugin_loaded").
		Str("plugin", c.id).
		Str("source", c.source).
		Str("version", info.Version).
		Int("categories", len(set.Categories())).
		Msg("loaded plugin")
	pm.replies.Reply(dispatch.ConsoleSender, Banner(info))

	return inst, nil
}

// abandon disposes a half-loaded plugin and returns cause.
func (pm *PluginManager) abandon(inst *PluginInstance, cause error) error {
	if err := inst.dispose(); err != nil {
		log.Warn().Err(err).Str("plugin", inst.ID).Msg("failed to dispose rejected plugin")
	}
	inst.state = StateFailed
	return cause
}

// Modules returns the command index of each initialized plugin in load order.
func (pm *PluginManager) Modules() []dispatch.Module {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]dispatch.Module, 0, len(pm.instances))
	for _, inst := range pm.instances {
		if inst.state != StateInitialized {
			continue
		}
		out = append(out, dispatch.Module{ID: inst.ID, Categories: inst.Categories})
	}
	return out
}

// GetPluginInstance returns a loaded plugin by id.
func (pm *PluginManager) GetPluginInstance(id string) *PluginInstance {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, inst := range pm.instances {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// ListPlugins returns the metadata of loaded plugins in load order.
func (pm *PluginManager) ListPlugins() []PluginInfo {
	return pm.registry.List()
}

// Close disposes every plugin in load order and releases the WASM runtime.
// Calling Close again does nothing.
func (pm *PluginManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.closed {
		return nil
	}
	pm.closed = true

	var errs []error
	for _, inst := range pm.instances {
		if err := inst.dispose(); err != nil {
			errs = append(errs, err)
		}
		pm.registry.SetState(inst.ID, inst.state)
	}
	if err := pm.wasm.Close(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("failed to close wasm runtime: %w", err))
	}

	return errors.Join(errs...)
}

type discard struct{}

func (discard) Reply(uint64, string) {}
