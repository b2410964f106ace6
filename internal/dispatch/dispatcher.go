// Package dispatch resolves parsed command tokens to a registered handler,
// checks authorization, binds arguments and invokes the handler.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/andrei-cloud/go_cmdhost/internal/logging"
	"github.com/andrei-cloud/go_cmdhost/internal/parser"
	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// ConsoleSender is the sender id of the local operator.
const ConsoleSender uint64 = 0

// Module is the category index of one loaded plugin.
type Module struct {
	ID         string
	Categories *registry.Set
}

// Catalog lists loaded modules in load order.
type Catalog interface {
	Modules() []Module
}

// Authorizer answers group membership questions.
type Authorizer interface {
	IsMember(ctx context.Context, group string, sender uint64) (bool, error)
}

// Match is a resolved command.
type Match struct {
	Module  string
	Command *registry.Command
}

// Dispatcher routes commands. It holds no lock of its own; callers serialize
// access.
type Dispatcher struct {
	catalog Catalog
	replies plugin.Replier
	auth    Authorizer
	timeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAuthorizer sets the membership collaborator. Without one, every remote
// sender is denied on tagged commands.
func WithAuthorizer(a Authorizer) Option {
	return func(d *Dispatcher) {
		d.auth = a
	}
}

// WithTimeout bounds how long the dispatcher waits for a handler.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// New returns a dispatcher over catalog reporting through replies.
func New(catalog Catalog, replies plugin.Replier, opts ...Option) *Dispatcher {
	d := &Dispatcher{catalog: catalog, replies: replies}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute resolves and runs one command. Every failure is also reported to
// the sender as a single line. An empty token list does nothing.
func (d *Dispatcher) Execute(ctx context.Context, tokens []parser.Token, sender uint64) error {
	if len(tokens) == 0 {
		return nil
	}

	match, err := d.Resolve(parser.Texts(tokens))
	if err != nil {
		d.reply(sender, err.Error())
		return err
	}
	cmd := match.Command
	cat := cmd.Category()

	start := time.Now()
	err = d.run(ctx, match, tokens[min(2, len(tokens)):], sender)
	logging.LogOutcome(ctx, match.Module, cat.Key, cmd.Key, time.Since(start), err)

	return err
}

func (d *Dispatcher) run(ctx context.Context, match Match, rest []parser.Token, sender uint64) error {
	cmd := match.Command
	cat := cmd.Category()

	if err := d.authorize(ctx, cmd, sender); err != nil {
		d.reply(sender, err.Error())
		return err
	}

	args, err := Bind(cmd.Params, rest)
	if err != nil {
		d.reply(sender, cmd.Help())
		return err
	}

	call := plugin.NewCall(sender, cat.Key, cmd.Key, args, d.replies)
	if err := d.invoke(ctx, cmd, call); err != nil {
		herr := &HandlerError{Category: cat.Key, Command: cmd.Key, Err: err}
		d.reply(sender, herr.Message())
		return herr
	}

	return nil
}

// Resolve selects a command for texts. Within each plugin, in load order,
// the first category prefixed by texts[0] is searched for the first command
// prefixed by texts[1]; the first plugin yielding a command wins.
func (d *Dispatcher) Resolve(texts []string) (Match, error) {
	if len(texts) == 0 {
		return Match{}, UnknownCategoryError{}
	}

	var first *registry.Category
	for _, m := range d.catalog.Modules() {
		cat, ok := m.Categories.Find(texts[0])
		if !ok {
			continue
		}
		if first == nil {
			first = cat
		}
		if len(texts) < 2 {
			break
		}
		if cmd, ok := cat.Find(texts[1]); ok {
			return Match{Module: m.ID, Command: cmd}, nil
		}
	}

	switch {
	case first == nil:
		return Match{}, UnknownCategoryError{Category: texts[0]}
	case len(texts) < 2:
		return Match{}, UnknownCommandError{Category: first.Key}
	default:
		return Match{}, UnknownCommandError{Command: texts[1], Category: first.Key}
	}
}

func (d *Dispatcher) authorize(ctx context.Context, cmd *registry.Command, sender uint64) error {
	group := cmd.EffectiveAuth()
	if group == "" || sender == ConsoleSender {
		return nil
	}

	denied := UnauthorizedError{
		Category: cmd.Category().Key,
		Command:  cmd.Key,
		Group:    group,
		Sender:   sender,
	}
	if d.auth == nil {
		return denied
	}

	ok, err := d.auth.IsMember(ctx, group, sender)
	if err != nil {
		logging.FromContext(ctx).Error().
			Str("event", "authorization_error").
			Str("group", group).
			Err(err).
			Msg("membership lookup failed")
		return denied
	}
	if !ok {
		return denied
	}
	return nil
}

// invoke runs the handler, recovering panics. With a timeout configured the
// handler runs on its own goroutine and is abandoned once the deadline
// passes; its context is cancelled so a cooperative handler can stop.
func (d *Dispatcher) invoke(ctx context.Context, cmd *registry.Command, call *plugin.Call) error {
	if d.timeout <= 0 {
		return safeCall(ctx, cmd.Handler, call)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(ctx, cmd.Handler, call)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
		}
		return ctx.Err()
	}
}

func safeCall(ctx context.Context, h plugin.Handler, call *plugin.Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logging.FromContext(ctx).Error().
				Str("event", "handler_panic").
				Str("category", call.Category).
				Str("command", call.Command).
				Str("stack", string(buf[:n])).
				Msgf("handler panic: %v", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return h(ctx, call)
}

func (d *Dispatcher) reply(sender uint64, text string) {
	if d.replies == nil {
		return
	}
	d.replies.Reply(sender, text)
}
