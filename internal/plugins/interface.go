// Package plugins discovers, loads and disposes plugins: Go plugins compiled
// into the binary, Lua scripts and WASM modules found in the plugins directory.
package plugins

import (
	"context"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// PluginManagerInterface defines the surface the host uses.
type PluginManagerInterface interface {
	// LoadAll loads every built-in plugin and every module found in dir.
	LoadAll(ctx context.Context, dir string) []LoadResult

	// Modules returns the command index of each initialized plugin in load order.
	Modules() []dispatch.Module

	// ListPlugins returns the metadata of loaded plugins.
	ListPlugins() []PluginInfo

	// Close disposes every plugin and releases runtimes.
	Close() error
}

// Opener turns a module file into a plugin. id is the module identifier.
type Opener interface {
	Open(ctx context.Context, id, path string) (plugin.Plugin, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, id, path string) (plugin.Plugin, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, id, path string) (plugin.Plugin, error) {
	return f(ctx, id, path)
}

// LoadResult is the outcome of loading one module.
type LoadResult struct {
	ID     string
	Source string
	Path   string
	Info   plugin.Info
	Err    error
}

var _ PluginManagerInterface = (*PluginManager)(nil)
