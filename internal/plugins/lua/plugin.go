package lua

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// Script errors.
var (
	ErrPluginEntry = errors.New("script must call host.plugin exactly once")
	ErrClosed      = errors.New("lua state closed")
)

type command struct {
	spec plugin.CommandSpec
	fn   *lua.LFunction
}

type category struct {
	spec     plugin.CategorySpec
	commands []command
}

// Plugin is a loaded Lua script.
type Plugin struct {
	id         string
	path       string
	L          *lua.LState
	info       plugin.Info
	entries    int
	categories []*category
	byName     map[string]*category
	settings   *map[string]any
	env        *plugin.Env
	closed     bool
	mu         sync.Mutex
}

// Open runs the script at path and collects its declarations.
func Open(_ context.Context, id, path string) (plugin.Plugin, error) {
	return open(id, path, "")
}

// OpenString runs source as if it were the script of module id.
func OpenString(id, source string) (*Plugin, error) {
	return open(id, "", source)
}

func open(id, path, source string) (*Plugin, error) {
	p := &Plugin{
		id:     id,
		path:   path,
		L:      newState(),
		byName: make(map[string]*category),
	}
	p.installHost()

	err := doWithRecovery(func() error {
		if path != "" {
			return p.L.DoFile(path)
		}
		return p.L.DoString(source)
	})
	if err != nil {
		p.L.Close()
		return nil, fmt.Errorf("failed to run script: %w", err)
	}

	if p.entries != 1 {
		p.L.Close()
		return nil, fmt.Errorf("%w: found %d", ErrPluginEntry, p.entries)
	}

	if t, ok := p.L.GetGlobal("settings").(*lua.LTable); ok {
		if m, ok := toGo(t).(map[string]any); ok {
			p.settings = &m
		}
	}

	return p, nil
}

func (p *Plugin) installHost() {
	host := p.L.SetFuncs(p.L.NewTable(), map[string]lua.LGFunction{
		"plugin":   p.luaPlugin,
		"category": p.luaCategory,
		"command":  p.luaCommand,
	})
	p.L.SetGlobal("host", host)
}

// host.plugin{name=, description=, author=, version=}
func (p *Plugin) luaPlugin(L *lua.LState) int {
	t := L.CheckTable(1)
	p.entries++
	p.info = plugin.Info{
		Name:        field(t, "name"),
		Description: field(t, "description"),
		Author:      field(t, "author"),
		Version:     field(t, "version"),
	}
	return 0
}

// host.category{name=, description=, auth=} returns the name.
func (p *Plugin) luaCategory(L *lua.LState) int {
	t := L.CheckTable(1)
	name := field(t, "name")
	if name == "" {
		L.ArgError(1, "category name is required")
		return 0
	}

	cat, ok := p.byName[name]
	if !ok {
		cat = &category{}
		p.byName[name] = cat
		p.categories = append(p.categories, cat)
	}
	cat.spec = plugin.CategorySpec{
		Name:        name,
		Description: field(t, "description"),
		Auth:        field(t, "auth"),
	}

	L.Push(lua.LString(name))
	return 1
}

// host.command(category, {name=, description=, auth=, params={{name=, type=, optional=}}}, fn)
func (p *Plugin) luaCommand(L *lua.LState) int {
	catName := L.CheckString(1)
	t := L.CheckTable(2)
	fn := L.CheckFunction(3)

	cat, ok := p.byName[catName]
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown category %q", catName))
		return 0
	}

	spec := plugin.CommandSpec{
		Name:        field(t, "name"),
		Description: field(t, "description"),
		Auth:        field(t, "auth"),
	}
	if params, ok := t.RawGetString("params").(*lua.LTable); ok {
		for i := 1; i <= params.Len(); i++ {
			pt, ok := params.RawGetInt(i).(*lua.LTable)
			if !ok {
				L.ArgError(2, "params entries must be tables")
				return 0
			}
			typ := plugin.ParamType(field(pt, "type"))
			if typ == "" {
				typ = plugin.String
			}
			spec.Params = append(spec.Params, plugin.ParamSpec{
				Name:        field(pt, "name"),
				Type:        typ,
				Optional:    lua.LVAsBool(pt.RawGetString("optional")),
				Description: field(pt, "description"),
			})
		}
	}
	if spec.Name == "" {
		L.ArgError(2, "command name is required")
		return 0
	}

	cat.commands = append(cat.commands, command{spec: spec, fn: fn})
	return 0
}

// Info implements plugin.Plugin.
func (p *Plugin) Info() plugin.Info { return p.info }

// Register implements plugin.Plugin.
func (p *Plugin) Register(r plugin.Registrar) error {
	for _, cat := range p.categories {
		b := r.Category(cat.spec)
		for _, cmd := range cat.commands {
			b.Command(cmd.spec, p.handler(cmd.fn))
		}
	}
	return nil
}

// DefaultSettings implements plugin.SettingsProvider using the global
// settings table left by the script.
func (p *Plugin) DefaultSettings() any {
	if p.settings == nil {
		return nil
	}
	return p.settings
}

// Initialize publishes the loaded settings and calls the global initialize.
func (p *Plugin) Initialize(ctx context.Context, env *plugin.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.env = env
	if p.settings != nil {
		p.L.SetGlobal("settings", toLua(p.L, *p.settings))
	}

	fn, ok := p.L.GetGlobal("initialize").(*lua.LFunction)
	if !ok {
		return nil
	}

	reply := func(sender uint64, text string) { env.Reply(sender, text) }
	return p.call(ctx, fn, p.contextTable(0, reply))
}

func (p *Plugin) handler(fn *lua.LFunction) plugin.Handler {
	return func(ctx context.Context, call *plugin.Call) error {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.closed {
			return ErrClosed
		}

		args := []lua.LValue{p.contextTable(call.Sender, call.ReplyTo)}
		for _, v := range call.Args {
			args = append(args, toLua(p.L, v))
		}
		return p.call(ctx, fn, args...)
	}
}

// call invokes fn; a returned string is replied to the caller.
func (p *Plugin) call(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) error {
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	return doWithRecovery(func() error {
		if err := p.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret := p.L.Get(-1)
		p.L.Pop(1)

		if s, ok := ret.(lua.LString); ok && s != "" {
			reply := args[0].(*lua.LTable).RawGetString("reply")
			if f, ok := reply.(*lua.LFunction); ok {
				return p.L.CallByParam(lua.P{Fn: f, NRet: 0, Protect: true}, args[0], s)
			}
		}
		return nil
	})
}

// contextTable builds the ctx argument: sender (decimal string), settings,
// data_dir, ctx:reply(text) and ctx:reply_to(sender, text).
func (p *Plugin) contextTable(sender uint64, reply func(uint64, string)) *lua.LTable {
	t := p.L.NewTable()
	t.RawSetString("sender", lua.LString(strconv.FormatUint(sender, 10)))
	t.RawSetString("settings", p.L.GetGlobal("settings"))
	if p.env != nil {
		t.RawSetString("data_dir", lua.LString(p.env.DataDir))
	}

	t.RawSetString("reply", p.L.NewFunction(func(L *lua.LState) int {
		reply(sender, L.CheckString(2))
		return 0
	}))
	t.RawSetString("reply_to", p.L.NewFunction(func(L *lua.LState) int {
		to, err := strconv.ParseUint(L.CheckString(2), 10, 64)
		if err != nil {
			L.ArgError(2, "sender must be a decimal id")
			return 0
		}
		reply(to, L.CheckString(3))
		return 0
	}))
	return t
}

// Dispose calls the global dispose and closes the state.
func (p *Plugin) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	defer p.L.Close()

	if fn, ok := p.L.GetGlobal("dispose").(*lua.LFunction); ok {
		return doWithRecovery(func() error {
			return p.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
		})
	}
	return nil
}

func field(t *lua.LTable, key string) string {
	switch v := t.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	default:
		return ""
	}
}
