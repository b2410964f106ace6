package plugins

import (
	"sync"
)

// PluginInfo describes a loaded plugin for listings.
type PluginInfo struct {
	ID          string
	Source      string
	Name        string
	Version     string
	Description string
	Author      string
	Categories  []string
	State       State
}

// PluginRegistry keeps plugin metadata in load order.
type PluginRegistry struct {
	order   []string
	plugins map[string]*PluginInfo
	mu      sync.RWMutex
}

// NewPluginRegistry creates a new plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{
		plugins: make(map[string]*PluginInfo),
	}
}

// Register adds or updates plugin metadata in the registry.
func (pr *PluginRegistry) Register(info *PluginInfo) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if _, ok := pr.plugins[info.ID]; !ok {
		pr.order = append(pr.order, info.ID)
	}
	pr.plugins[info.ID] = info
}

// SetState updates the recorded state of plugin id.
func (pr *PluginRegistry) SetState(id string, state State) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if info, ok := pr.plugins[id]; ok {
		info.State = state
	}
}

// Get retrieves plugin metadata by id.
func (pr *PluginRegistry) Get(id string) (PluginInfo, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	info, ok := pr.plugins[id]
	if !ok {
		return PluginInfo{}, false
	}
	return *info, true
}

// List returns all registered plugins in load order.
func (pr *PluginRegistry) List() []PluginInfo {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	result := make([]PluginInfo, 0, len(pr.order))
	for _, id := range pr.order {
		result = append(result, *pr.plugins[id])
	}
	return result
}
