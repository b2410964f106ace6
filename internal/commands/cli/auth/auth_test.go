package auth

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewAuthCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAuthCommands(t *testing.T) {
	config.Get().Auth.DB = filepath.Join(t.TempDir(), "auth.db")

	out, err := run(t, "grant", "Admins", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Granted 42 to Admins")

	_, err = run(t, "grant", "ops", "7")
	require.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admins   42")
	assert.Contains(t, out, "ops      7")

	out, err = run(t, "list", "ops")
	require.NoError(t, err)
	assert.NotContains(t, out, "admins")

	_, err = run(t, "revoke", "ops", "7")
	require.NoError(t, err)
	_, err = run(t, "revoke", "ops", "7")
	assert.Error(t, err)

	_, err = run(t, "grant", "ops", "zero")
	assert.Error(t, err)
}
