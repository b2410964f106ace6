// Package plugin defines the contract between the command host and the
// plugins it loads. Go plugins compiled into the binary register a factory
// with Register from an init function; the host instantiates them during
// startup in id order.
package plugin

import (
	"context"
)

// DefaultVersion is reported for plugins that do not declare a version.
const DefaultVersion = "1.0"

// Info is the display metadata of a plugin.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Plugin is implemented by every loadable extension module.
type Plugin interface {
	// Info returns the plugin metadata. Name is required.
	Info() Info
	// Register declares the categories and commands of the plugin.
	Register(r Registrar) error
	// Initialize is called once after settings have been assigned.
	Initialize(ctx context.Context, env *Env) error
	// Dispose releases plugin resources at host shutdown.
	Dispose() error
}

// SettingsProvider is implemented by plugins that persist settings.
// DefaultSettings must return a pointer; the host fills it in place from
// the settings file, or persists it as is when no file exists yet.
type SettingsProvider interface {
	DefaultSettings() any
}

// Disposer is implemented by category instances holding resources.
type Disposer interface {
	Dispose() error
}

// Replier delivers reply text to a sender.
type Replier interface {
	Reply(sender uint64, text string)
}

// Env is handed to a plugin when it is initialized.
type Env struct {
	// ID is the module identifier the plugin was loaded under.
	ID string
	// DataDir is the plugin private directory, created before Initialize.
	DataDir string
	// Settings is the value returned by DefaultSettings after loading, or nil.
	Settings any
	// Replies is the host reply sink for messages outside a command call.
	Replies Replier
}

// Reply sends text to sender through the host reply sink.
func (e *Env) Reply(sender uint64, text string) {
	if e == nil || e.Replies == nil {
		return
	}
	e.Replies.Reply(sender, text)
}

// Base provides no-op lifecycle hooks for embedding.
type Base struct{}

// Initialize does nothing.
func (Base) Initialize(context.Context, *Env) error { return nil }

// Dispose does nothing.
func (Base) Dispose() error { return nil }
