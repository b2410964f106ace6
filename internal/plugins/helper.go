package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/andrei-cloud/go_cmdhost/pkg/pluginsdk"
)

// AllocBuffer allocates guest memory via the wasm Alloc export and writes
// the given host-side data slice into the guest's linear memory, returning the pointer address.
func AllocBuffer(
	ctx context.Context,
	mod api.Module,
	alloc api.Function,
	data []byte,
) (uint32, error) {
	length := uint32(len(data))
	if length == 0 {
		return 0, errors.New("buffer length is zero")
	}

	results, err := alloc.Call(ctx, uint64(length))
	if err != nil {
		return 0, fmt.Errorf("alloc failed: %w", err)
	}
	if len(results) < 1 {
		return 0, errors.New("alloc returned no results")
	}

	ptr := api.DecodeU32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, errors.New("memory write failed: bounds exceeded")
	}

	return ptr, nil
}

// CallPacked invokes fn with the given params and returns its packed
// ptr<<32|len result.
func CallPacked(ctx context.Context, fn api.Function, params ...uint64) (uint64, error) {
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("execution failed: %w", err)
	}
	if len(results) < 1 {
		return 0, errors.New("invalid execution result")
	}

	return results[0], nil
}

// ReadBuffer copies the guest memory region named by a packed result.
func ReadBuffer(mod api.Module, packed uint64) ([]byte, error) {
	ptr, length := pluginsdk.UnpackResult(packed)
	if length == 0 {
		return nil, errors.New("empty result")
	}
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, errors.New("memory read failed: bounds exceeded")
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// RoundTrip writes input into guest memory, calls fn with its pointer and
// length, and returns the bytes fn points back to.
func RoundTrip(
	ctx context.Context,
	mod api.Module,
	alloc, fn api.Function,
	input []byte,
) ([]byte, error) {
	ptr, err := AllocBuffer(ctx, mod, alloc, input)
	if err != nil {
		return nil, err
	}

	packed, err := CallPacked(ctx, fn, uint64(ptr), uint64(len(input)))
	if err != nil {
		return nil, err
	}

	return ReadBuffer(mod, packed)
}
