// Package host is the single invocation point shared by every transport:
// it parses a line, routes help requests and serializes dispatch.
package host

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/internal/logging"
	"github.com/andrei-cloud/go_cmdhost/internal/parser"
)

// HelpKeyword switches a line to help when its first token starts with it.
const HelpKeyword = "help"

// ErrNotCommand is returned for remote chat lines without a leading slash.
var ErrNotCommand = errors.New("not a command")

// Engine is the part of the dispatcher the host drives.
type Engine interface {
	Execute(ctx context.Context, tokens []parser.Token, sender uint64) error
	Help(texts []string, sender uint64) (string, error)
}

// Host serializes command execution from all transports.
type Host struct {
	engine Engine
	mu     sync.Mutex
}

// New returns a host driving engine.
func New(engine Engine) *Host {
	return &Host{engine: engine}
}

// Execute runs one line of input from sender. Console input may omit the
// leading slash; remote input without one is chat and is ignored with
// ErrNotCommand.
func (h *Host) Execute(ctx context.Context, input string, sender uint64) error {
	line := strings.TrimSpace(input)
	if line == "" {
		return nil
	}
	if sender != dispatch.ConsoleSender && !strings.HasPrefix(line, "/") {
		return ErrNotCommand
	}

	tokens := parser.Parse(line)
	if len(tokens) == 0 {
		return nil
	}

	ctx, _ = logging.WithRequest(ctx, sender)
	logging.LogCommand(ctx, source(sender), line)

	h.mu.Lock()
	defer h.mu.Unlock()

	if IsHelp(tokens[0].Text) {
		_, err := h.engine.Help(parser.Texts(tokens), sender)
		return err
	}
	return h.engine.Execute(ctx, tokens, sender)
}

// IsHelp reports whether word selects help.
func IsHelp(word string) bool {
	return strings.HasPrefix(strings.ToLower(word), HelpKeyword)
}

func source(sender uint64) string {
	if sender == dispatch.ConsoleSender {
		return "console"
	}
	return "remote"
}
