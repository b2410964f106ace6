package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModule is the import module name guests link their host calls against.
const HostModule = "env"

// guestLogLevels maps the exported host log functions to their levels.
var guestLogLevels = []struct {
	name  string
	level zerolog.Level
}{
	{"log_debug", zerolog.DebugLevel},
	{"log_info", zerolog.InfoLevel},
	{"log_error", zerolog.ErrorLevel},
}

// HostFunctions provides the host module imported by WASM plugins.
type HostFunctions struct {
	builder wazero.HostModuleBuilder
}

// NewHostFunctions creates the host module builder for runtime.
func NewHostFunctions(runtime wazero.Runtime) *HostFunctions {
	return &HostFunctions{builder: runtime.NewHostModuleBuilder(HostModule)}
}

// Register exports the guest log functions and instantiates the module.
func (h *HostFunctions) Register(ctx context.Context) error {
	for _, l := range guestLogLevels {
		h.builder.NewFunctionBuilder().
			WithFunc(guestLogger(l.level)).
			Export(l.name)
	}

	if _, err := h.builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host functions module: %w", err)
	}

	return nil
}

// guestLogger returns a host function logging a guest string at level.
func guestLogger(level zerolog.Level) func(context.Context, api.Module, uint32, uint32) {
	return func(_ context.Context, mod api.Module, ptr, size uint32) {
		data, err := readMemory(mod, ptr, size)
		if err != nil {
			log.Error().Err(err).Str("event", "guest_log_failed").Msg("failed to read guest log message")
			return
		}

		log.WithLevel(level).
			Str("event", "guest_log").
			Str("source", "wasm").
			Str("plugin", mod.Name()).
			Msg(string(data))
	}
}

// readMemory reads size bytes of guest memory at ptr.
func readMemory(mod api.Module, ptr, size uint32) ([]byte, error) {
	if mod == nil {
		return nil, errors.New("nil module")
	}

	memory := mod.Memory()
	if memory == nil {
		return nil, errors.New("no memory exported")
	}

	data, ok := memory.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("failed to read memory at %d[%d]", ptr, size)
	}

	return data, nil
}
