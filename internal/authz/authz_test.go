package authz

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreGrantRevoke(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	ok, err := s.IsMember(ctx, "administrator", 76561198000000000)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Grant(ctx, "Administrator", 76561198000000000))
	require.NoError(t, s.Grant(ctx, "administrator", 76561198000000000))

	ok, err = s.IsMember(ctx, "ADMINISTRATOR", 76561198000000000)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Revoke(ctx, "administrator", 76561198000000000)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Revoke(ctx, "administrator", 76561198000000000)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStoreHighSender(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Grant(ctx, "ops", math.MaxUint64))
	ok, err := s.IsMember(ctx, "ops", math.MaxUint64)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreMembers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Grant(ctx, "ops", 2))
	require.NoError(t, s.Grant(ctx, "administrator", 1))

	all, err := s.Members(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []Member{{Group: "administrator", Sender: 1}, {Group: "ops", Sender: 2}}, all)

	ops, err := s.Members(ctx, "OPS")
	require.NoError(t, err)
	assert.Equal(t, []Member{{Group: "ops", Sender: 2}}, ops)

	assert.ErrorIs(t, s.Grant(ctx, " ", 3), ErrEmptyGroup)
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Grant(ctx, "ops", 9))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.IsMember(ctx, "ops", 9)
	require.NoError(t, err)
	assert.True(t, ok)
}

type failing struct{}

func (failing) IsMember(context.Context, string, uint64) (bool, error) {
	return false, errors.New("offline")
}

func TestStaticAndChain(t *testing.T) {
	ctx := context.Background()
	static := NewStatic(map[string][]uint64{"Administrator": {1, 2}})

	ok, err := static.IsMember(ctx, "administrator", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = static.IsMember(ctx, "administrator", 3)
	assert.False(t, ok)

	chain := Chain{nil, static, Static{"ops": {3}}}
	ok, err = chain.IsMember(ctx, "ops", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = chain.IsMember(ctx, "ops", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Chain{failing{}, static}.IsMember(ctx, "administrator", 1)
	assert.Error(t, err)
}
