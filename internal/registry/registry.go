// Package registry holds the category and command index built from plugin
// registrations. An index is built once during load and is read-only after.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// Registration errors.
var (
	ErrMissingKey    = errors.New("missing key")
	ErrInvalidParams = errors.New("invalid parameters")
	ErrNilHandler    = errors.New("nil handler")
)

// Command is one invocable handler.
type Command struct {
	Key         string
	Description string
	Auth        string
	Params      []plugin.ParamSpec
	Handler     plugin.Handler

	category *Category
}

// Category returns the category the command belongs to.
func (c *Command) Category() *Category { return c.category }

// EffectiveAuth returns the command tag, falling back to the category tag.
func (c *Command) EffectiveAuth() string {
	if c.Auth != "" {
		return c.Auth
	}
	if c.category != nil {
		return c.category.Auth
	}
	return ""
}

// Help renders the usage line of the command.
func (c *Command) Help() string {
	var b strings.Builder
	b.WriteString("/")
	if c.category != nil {
		b.WriteString(c.category.Key)
		b.WriteString(" ")
	}
	b.WriteString(c.Key)

	for _, p := range c.Params {
		b.WriteString(" ")
		switch {
		case p.Type == plugin.Rest:
			fmt.Fprintf(&b, "[%s:%s...]", p.Name, plugin.String)
		case p.Optional:
			fmt.Fprintf(&b, "[%s:%s]", p.Name, p.Type)
		default:
			fmt.Fprintf(&b, "<%s:%s>", p.Name, p.Type)
		}
	}

	return b.String()
}

// Category is a named group of commands.
type Category struct {
	Key         string
	Description string
	Auth        string
	Instance    any

	commands []*Command
	index    map[string]int
}

func newCategory(key string) *Category {
	return &Category{Key: key, index: make(map[string]int)}
}

// Commands returns the commands in insertion order.
func (c *Category) Commands() []*Command {
	return c.commands
}

// Sorted returns the commands ordered by key.
func (c *Category) Sorted() []*Command {
	out := append([]*Command(nil), c.commands...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup returns the command with exactly key.
func (c *Category) Lookup(key string) (*Command, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.commands[i], true
}

// Find returns the first command, in insertion order, whose key starts with
// prefix.
func (c *Category) Find(prefix string) (*Command, bool) {
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd.Key, prefix) {
			return cmd, true
		}
	}
	return nil, false
}

// add inserts cmd. A key that exists already keeps its slot and takes the
// new definition.
func (c *Category) add(cmd *Command) {
	cmd.category = c
	if i, ok := c.index[cmd.Key]; ok {
		c.commands[i] = cmd
		return
	}
	c.index[cmd.Key] = len(c.commands)
	c.commands = append(c.commands, cmd)
}

// Set is the category index of one plugin. It implements plugin.Registrar.
type Set struct {
	categories []*Category
	index      map[string]*Category
	errs       []error
}

// NewSet returns an empty index.
func NewSet() *Set {
	return &Set{index: make(map[string]*Category)}
}

// Category declares a category, or reopens one with the same key.
func (s *Set) Category(spec plugin.CategorySpec) plugin.CategoryBuilder {
	key := CategoryKey(spec)
	if key == "" {
		s.errs = append(s.errs, fmt.Errorf("category: %w", ErrMissingKey))
		return &builder{set: s}
	}

	cat, ok := s.index[key]
	if !ok {
		cat = newCategory(key)
		s.index[key] = cat
		s.categories = append(s.categories, cat)
	}
	if spec.Description != "" {
		cat.Description = spec.Description
	}
	if spec.Auth != "" {
		cat.Auth = normalize(spec.Auth)
	}
	if spec.Instance != nil {
		cat.Instance = spec.Instance
	}

	return &builder{set: s, cat: cat}
}

// Categories returns the categories in registration order.
func (s *Set) Categories() []*Category {
	return s.categories
}

// Find returns the first category whose key starts with prefix.
func (s *Set) Find(prefix string) (*Category, bool) {
	for _, cat := range s.categories {
		if strings.HasPrefix(cat.Key, prefix) {
			return cat, true
		}
	}
	return nil, false
}

// Lookup returns the category with exactly key.
func (s *Set) Lookup(key string) (*Category, bool) {
	cat, ok := s.index[key]
	return cat, ok
}

// Err returns every registration error collected so far.
func (s *Set) Err() error {
	return errors.Join(s.errs...)
}

type builder struct {
	set *Set
	cat *Category
}

func (b *builder) Command(spec plugin.CommandSpec, h plugin.Handler) plugin.CategoryBuilder {
	if b.cat == nil {
		return b
	}
	if h == nil {
		b.set.errs = append(b.set.errs, fmt.Errorf("%s %s: %w", b.cat.Key, spec.Name, ErrNilHandler))
		return b
	}

	key := CommandKey(spec, h)
	if key == "" {
		b.set.errs = append(b.set.errs, fmt.Errorf("%s: command: %w", b.cat.Key, ErrMissingKey))
		return b
	}

	params, err := normalizeParams(spec.Params)
	if err != nil {
		b.set.errs = append(b.set.errs, fmt.Errorf("%s %s: %w", b.cat.Key, key, err))
		return b
	}

	b.cat.add(&Command{
		Key:         key,
		Description: spec.Description,
		Auth:        normalize(spec.Auth),
		Params:      params,
		Handler:     h,
	})

	return b
}

// CategoryKey derives the category key from its declared name, else from the
// bare type name of its instance.
func CategoryKey(spec plugin.CategorySpec) string {
	if name := normalize(spec.Name); name != "" {
		return name
	}
	if spec.Instance == nil {
		return ""
	}
	t := reflect.TypeOf(spec.Instance)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return normalize(t.Name())
}

// CommandKey derives the command key from its declared name, else from the
// handler function or method name.
func CommandKey(spec plugin.CommandSpec, h plugin.Handler) string {
	if name := normalize(spec.Name); name != "" {
		return name
	}
	if h == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return ""
	}
	name := strings.TrimSuffix(fn.Name(), "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return normalize(name)
}

// ValidateParams checks parameter ordering rules.
func ValidateParams(params []plugin.ParamSpec) error {
	_, err := normalizeParams(params)
	return err
}

func normalizeParams(params []plugin.ParamSpec) ([]plugin.ParamSpec, error) {
	out := make([]plugin.ParamSpec, len(params))
	optional := false
	for i, p := range params {
		switch p.Type {
		case plugin.String, plugin.Int, plugin.Float:
		case plugin.Rest:
			if i != len(params)-1 {
				return nil, fmt.Errorf("%w: rest parameter must be last", ErrInvalidParams)
			}
		case "":
			p.Type = plugin.String
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidParams, p.Type)
		}

		if p.Type != plugin.Rest {
			if optional && !p.Optional {
				return nil, fmt.Errorf("%w: required parameter after optional", ErrInvalidParams)
			}
			optional = optional || p.Optional
		}

		p.Name = normalize(p.Name)
		if p.Name == "" {
			p.Name = fmt.Sprintf("arg%d", i)
		}
		out[i] = p
	}
	return out, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
