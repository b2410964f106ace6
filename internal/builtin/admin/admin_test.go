package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/authz"
	"github.com/andrei-cloud/go_cmdhost/internal/registry"
	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

type sink struct {
	replies []string
}

func (s *sink) Reply(_ uint64, text string) { s.replies = append(s.replies, text) }

func TestAdminCommands(t *testing.T) {
	store, err := authz.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p := New(store)()
	set := registry.NewSet()
	require.NoError(t, p.Register(set))
	require.NoError(t, set.Err())

	cat, ok := set.Lookup("auth")
	require.True(t, ok)
	assert.Equal(t, Group, cat.Auth)

	ctx := context.Background()
	out := &sink{}
	call := func(name string, args ...any) {
		t.Helper()
		cmd, ok := cat.Lookup(name)
		require.True(t, ok, name)
		require.NoError(t, cmd.Handler(ctx, plugin.NewCall(1, "auth", name, plugin.Args(args), out)))
	}

	tests := []struct {
		name    string
		command string
		args    []any
		want    string
	}{
		{name: "empty group", command: "members", args: []any{"Moderators"}, want: "moderators has no members."},
		{name: "grant", command: "grant", args: []any{"Moderators", "76561198000000001"}, want: "Granted 76561198000000001 to moderators."},
		{name: "grant again", command: "grant", args: []any{"moderators", "42"}, want: "Granted 42 to moderators."},
		{name: "list", command: "members", args: []any{"moderators"}, want: "moderators: 76561198000000001, 42"},
		{name: "bad sender", command: "grant", args: []any{"moderators", "abc"}, want: `invalid sender id "abc"`},
		{name: "console sender", command: "revoke", args: []any{"moderators", "0"}, want: `invalid sender id "0"`},
		{name: "revoke", command: "revoke", args: []any{"moderators", "42"}, want: "Revoked 42 from moderators."},
		{name: "revoke missing", command: "revoke", args: []any{"moderators", "42"}, want: "42 is not in moderators."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.replies = nil
			call(tt.command, tt.args...)
			assert.Equal(t, []string{tt.want}, out.replies)
		})
	}

	ok, err = store.IsMember(ctx, "moderators", 76561198000000001)
	require.NoError(t, err)
	assert.True(t, ok)
}
