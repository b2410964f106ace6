package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a fresh plugin instance.
type Factory func() Plugin

// Entry is one statically registered plugin module.
type Entry struct {
	ID        string
	Factories []Factory
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string][]Factory)
)

// Register makes a compiled-in plugin available under id. It is meant to be
// called from init. Registering an id twice leaves the module with more than
// one entry point and the host refuses to load it.
func Register(id string, f Factory) {
	if f == nil {
		panic(fmt.Sprintf("plugin: Register factory for %q is nil", id))
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[id] = append(factories[id], f)
}

// Registered returns all registered modules sorted by id.
func Registered() []Entry {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]Entry, 0, len(factories))
	for id, fs := range factories {
		out = append(out, Entry{ID: id, Factories: append([]Factory(nil), fs...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// unregisterAll clears the table. Used by tests.
func unregisterAll() {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories = make(map[string][]Factory)
}
