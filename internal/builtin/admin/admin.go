// Package admin is a built-in plugin managing authorization group
// membership from chat.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/andrei-cloud/go_cmdhost/internal/authz"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// ID is the module id of the plugin.
const ID = "admin"

// Group is the authorization tag guarding the plugin commands.
const Group = "administrator"

// Memberships is the part of the membership store the plugin uses.
type Memberships interface {
	Grant(ctx context.Context, group string, sender uint64) error
	Revoke(ctx context.Context, group string, sender uint64) (bool, error)
	Members(ctx context.Context, group string) ([]authz.Member, error)
}

// Plugin exposes the auth category.
type Plugin struct {
	plugin.Base
	store Memberships
}

// New returns a factory for a plugin backed by store.
func New(store Memberships) plugin.Factory {
	return func() plugin.Plugin {
		return &Plugin{store: store}
	}
}

// Info implements plugin.Plugin.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "Admin",
		Description: "Manages who may run guarded commands.",
		Author:      "go_cmdhost",
		Version:     "1.0.0",
	}
}

// Register implements plugin.Plugin.
func (p *Plugin) Register(r plugin.Registrar) error {
	pair := []plugin.ParamSpec{
		{Name: "group", Type: plugin.String, Description: "Authorization group."},
		{Name: "sender", Type: plugin.String, Description: "Sender id."},
	}
	r.Category(plugin.CategorySpec{Name: "auth", Description: "Authorization groups.", Auth: Group}).
		Command(plugin.CommandSpec{Name: "grant", Description: "Adds a sender to a group.", Params: pair}, p.grant).
		Command(plugin.CommandSpec{Name: "revoke", Description: "Removes a sender from a group.", Params: pair}, p.revoke).
		Command(plugin.CommandSpec{
			Name:        "members",
			Description: "Lists the senders of a group.",
			Params:      pair[:1],
		}, p.members)
	return nil
}

func parseSender(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid sender id %q", s)
	}
	return id, nil
}

func (p *Plugin) grant(ctx context.Context, call *plugin.Call) error {
	group := call.Args.String(0)
	sender, err := parseSender(call.Args.String(1))
	if err != nil {
		call.Reply(err.Error())
		return nil
	}
	if err := p.store.Grant(ctx, group, sender); err != nil {
		return err
	}
	call.Reply(fmt.Sprintf("Granted %d to %s.", sender, strings.ToLower(group)))
	return nil
}

func (p *Plugin) revoke(ctx context.Context, call *plugin.Call) error {
	group := call.Args.String(0)
	sender, err := parseSender(call.Args.String(1))
	if err != nil {
		call.Reply(err.Error())
		return nil
	}
	removed, err := p.store.Revoke(ctx, group, sender)
	if err != nil {
		return err
	}
	if !removed {
		call.Reply(fmt.Sprintf("%d is not in %s.", sender, strings.ToLower(group)))
		return nil
	}
	call.Reply(fmt.Sprintf("Revoked %d from %s.", sender, strings.ToLower(group)))
	return nil
}

func (p *Plugin) members(ctx context.Context, call *plugin.Call) error {
	group := strings.ToLower(call.Args.String(0))
	members, err := p.store.Members(ctx, group)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		call.Reply(fmt.Sprintf("%s has no members.", group))
		return nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = strconv.FormatUint(m.Sender, 10)
	}
	call.Reply(fmt.Sprintf("%s: %s", group, strings.Join(ids, ", ")))
	return nil
}
