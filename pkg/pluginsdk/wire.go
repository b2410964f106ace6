// Package pluginsdk provides the wire format and helper functions for WASM
// plugins. A guest exports Alloc, Manifest and Execute, and optionally
// Initialize and Dispose:
//
//	Alloc(size uint32) uint32
//	Manifest() uint64                  // packed ptr<<32|len of a Manifest JSON
//	Execute(ptr, len uint32) uint64    // Request JSON in, Response JSON out
//	Initialize(ptr, len uint32) uint64 // InitRequest JSON in, Response JSON out
//	Dispose()
package pluginsdk

import "github.com/andrei-cloud/go_cmdhost/pkg/plugin"

// Manifest describes a WASM plugin.
type Manifest struct {
	Plugin     plugin.Info        `json:"plugin"`
	Settings   map[string]any     `json:"settings,omitempty"`
	Categories []CategoryManifest `json:"categories"`
}

// CategoryManifest describes one category.
type CategoryManifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Auth        string            `json:"auth,omitempty"`
	Commands    []CommandManifest `json:"commands"`
}

// CommandManifest describes one command.
type CommandManifest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Auth        string             `json:"auth,omitempty"`
	Params      []plugin.ParamSpec `json:"params,omitempty"`
}

// Request is the input of Execute.
type Request struct {
	Category string         `json:"category"`
	Command  string         `json:"command"`
	Sender   uint64         `json:"sender"`
	Args     []any          `json:"args"`
	Settings map[string]any `json:"settings,omitempty"`
}

// InitRequest is the input of Initialize.
type InitRequest struct {
	ID       string         `json:"id"`
	DataDir  string         `json:"data_dir"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Response is the output of Execute and Initialize.
type Response struct {
	Replies []string `json:"replies,omitempty"`
	Error   string   `json:"error,omitempty"`
}
