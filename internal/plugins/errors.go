package plugins

import (
	"errors"
	"fmt"
)

// Load errors.
var (
	ErrInvalidPlugin   = errors.New("invalid plugin")
	ErrMissingMetadata = errors.New("plugin name is required")
	ErrNoCategories    = errors.New("plugin registers no categories")
	ErrEntryPoints     = errors.New("module must provide exactly one plugin entry")
	ErrInvalidVersion  = errors.New("invalid plugin version")
)

// InvalidPluginError reports a module that cannot be loaded as a plugin.
type InvalidPluginError struct {
	Module string
	Err    error
}

func (e *InvalidPluginError) Error() string {
	return fmt.Sprintf("invalid plugin %s: %v", e.Module, e.Err)
}

func (e *InvalidPluginError) Unwrap() error { return e.Err }

func (e *InvalidPluginError) Is(target error) bool { return target == ErrInvalidPlugin }

func invalid(module string, err error) error {
	return &InvalidPluginError{Module: module, Err: err}
}
