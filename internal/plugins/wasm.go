package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
	"github.com/andrei-cloud/go_cmdhost/pkg/pluginsdk"
)

// WASM module errors.
var (
	ErrMissingExport = errors.New("missing export")
	ErrBadManifest   = errors.New("invalid manifest")
)

// WasmOpener compiles WASM plugin modules into one shared runtime, created
// on first use.
type WasmOpener struct {
	runtime wazero.Runtime
	mu      sync.Mutex
}

// NewWasmOpener returns an opener without a runtime yet.
func NewWasmOpener() *WasmOpener {
	return &WasmOpener{}
}

func (w *WasmOpener) ensureRuntime(ctx context.Context) (wazero.Runtime, error) {
	if w.runtime != nil {
		return w.runtime, nil
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	if err := NewHostFunctions(rt).Register(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	w.runtime = rt
	return rt, nil
}

// Open implements Opener for .wasm files.
func (w *WasmOpener) Open(ctx context.Context, id, path string) (plugin.Plugin, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin file: %w", err)
	}
	return w.OpenBytes(ctx, id, wasmBytes)
}

// OpenBytes instantiates a compiled module under name id.
func (w *WasmOpener) OpenBytes(ctx context.Context, id string, wasmBytes []byte) (plugin.Plugin, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rt, err := w.ensureRuntime(ctx)
	if err != nil {
		return nil, err
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile plugin module: %w", err)
	}

	// reactor modules initialize through _initialize; commands are never started.
	cfg := wazero.NewModuleConfig().
		WithName(id).
		WithStartFunctions("_initialize")

	module, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugin module: %w", err)
	}

	p := &wasmPlugin{
		id:        id,
		module:    module,
		alloc:     module.ExportedFunction("Alloc"),
		execute:   module.ExportedFunction("Execute"),
		initFn:    module.ExportedFunction("Initialize"),
		disposeFn: module.ExportedFunction("Dispose"),
	}
	for name, fn := range map[string]api.Function{"Alloc": p.alloc, "Execute": p.execute} {
		if fn == nil {
			_ = module.Close(ctx)
			return nil, fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
	}

	manifestFn := module.ExportedFunction("Manifest")
	if manifestFn == nil {
		_ = module.Close(ctx)
		return nil, fmt.Errorf("%w: Manifest", ErrMissingExport)
	}
	if err := p.readManifest(ctx, manifestFn); err != nil {
		_ = module.Close(ctx)
		return nil, err
	}

	log.Info().Str("plugin", id).Msg("loaded wasm plugin")

	return p, nil
}

// Close releases the runtime and every module compiled into it.
func (w *WasmOpener) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.runtime == nil {
		return nil
	}
	err := w.runtime.Close(ctx)
	w.runtime = nil
	return err
}

// wasmPlugin adapts a guest module to plugin.Plugin.
type wasmPlugin struct {
	id        string
	module    api.Module
	alloc     api.Function
	execute   api.Function
	initFn    api.Function
	disposeFn api.Function
	manifest  pluginsdk.Manifest
	settings  *map[string]any
	closed    bool
	mu        sync.Mutex
}

func (p *wasmPlugin) readManifest(ctx context.Context, fn api.Function) error {
	packed, err := CallPacked(ctx, fn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	data, err := ReadBuffer(p.module, packed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if err := json.Unmarshal(data, &p.manifest); err != nil {
		return fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	return nil
}

func (p *wasmPlugin) Info() plugin.Info { return p.manifest.Plugin }

func (p *wasmPlugin) Register(r plugin.Registrar) error {
	for _, cat := range p.manifest.Categories {
		b := r.Category(plugin.CategorySpec{
			Name:        cat.Name,
			Description: cat.Description,
			Auth:        cat.Auth,
		})
		for _, cmd := range cat.Commands {
			b.Command(plugin.CommandSpec{
				Name:        cmd.Name,
				Description: cmd.Description,
				Auth:        cmd.Auth,
				Params:      cmd.Params,
			}, p.handle)
		}
	}
	return nil
}

func (p *wasmPlugin) DefaultSettings() any {
	if p.manifest.Settings == nil {
		return nil
	}
	s := maps.Clone(p.manifest.Settings)
	p.settings = &s
	return p.settings
}

func (p *wasmPlugin) currentSettings() map[string]any {
	if p.settings == nil {
		return nil
	}
	return *p.settings
}

func (p *wasmPlugin) Initialize(ctx context.Context, env *plugin.Env) error {
	if p.initFn == nil {
		return nil
	}
	resp, err := p.roundTrip(ctx, p.initFn, pluginsdk.InitRequest{
		ID:       env.ID,
		DataDir:  env.DataDir,
		Settings: p.currentSettings(),
	})
	if err != nil {
		return err
	}
	for _, text := range resp.Replies {
		env.Reply(0, text)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (p *wasmPlugin) handle(ctx context.Context, call *plugin.Call) error {
	resp, err := p.roundTrip(ctx, p.execute, pluginsdk.Request{
		Category: call.Category,
		Command:  call.Command,
		Sender:   call.Sender,
		Args:     []any(call.Args),
		Settings: p.currentSettings(),
	})
	if err != nil {
		return err
	}
	for _, text := range resp.Replies {
		call.Reply(text)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (p *wasmPlugin) roundTrip(ctx context.Context, fn api.Function, req any) (pluginsdk.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var resp pluginsdk.Response
	if p.closed {
		return resp, errors.New("plugin module is closed")
	}

	input, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("failed to encode request: %w", err)
	}
	out, err := RoundTrip(ctx, p.module, p.alloc, fn, input)
	if err != nil {
		return resp, fmt.Errorf("plugin execution error: %w", err)
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

func (p *wasmPlugin) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	ctx := context.Background()
	var errs []error
	if p.disposeFn != nil {
		if _, err := p.disposeFn.Call(ctx); err != nil {
			errs = append(errs, fmt.Errorf("dispose export: %w", err))
		}
	}
	if err := p.module.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
