package plugins

import (
	"errors"
	"fmt"

	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// Source names where a plugin came from.
const (
	SourceBuiltin = "builtin"
	SourceLua     = "lua"
	SourceWasm    = "wasm"
)

// PluginInstance is one loaded plugin and its command index.
type PluginInstance struct {
	ID         string
	Source     string
	Path       string
	Info       plugin.Info
	Plugin     plugin.Plugin
	Categories *registry.Set
	DataDir    string
	Settings   any

	state State
}

// State returns the lifecycle state.
func (pi *PluginInstance) State() State { return pi.state }

// dispose tears down category instances in registration order, then the
// plugin. A second call does nothing.
func (pi *PluginInstance) dispose() error {
	if pi.state == StateDisposed || pi.state == StateUnloaded {
		return nil
	}
	pi.state = StateDisposed

	var errs []error
	if pi.Categories != nil {
		for _, cat := range pi.Categories.Categories() {
			d, ok := cat.Instance.(plugin.Disposer)
			if !ok {
				continue
			}
			if err := d.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("category %s: %w", cat.Key, err))
			}
		}
	}
	if pi.Plugin != nil {
		if err := pi.Plugin.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("dispose %s: %w", pi.ID, errors.Join(errs...))
	}
	return nil
}

func (pi *PluginInstance) info() *PluginInfo {
	out := &PluginInfo{
		ID:          pi.ID,
		Source:      pi.Source,
		Name:        pi.Info.Name,
		Version:     pi.Info.Version,
		Description: pi.Info.Description,
		Author:      pi.Info.Author,
		State:       pi.state,
	}
	if pi.Categories != nil {
		for _, cat := range pi.Categories.Categories() {
			out.Categories = append(out.Categories, cat.Key)
		}
	}
	return out
}
