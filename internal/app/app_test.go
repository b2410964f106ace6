package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_cmdhost/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{}
	cfg.Plugins.Dir = filepath.Join(root, "Plugins")
	cfg.Plugins.DataDir = "Data"
	cfg.Auth.DB = filepath.Join(root, "auth", "auth.db")
	cfg.Auth.Groups = map[string][]uint64{"administrator": {500}}
	return cfg
}

func TestOpen(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Plugins.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Plugins.Dir, "echo.lua"), []byte(`
host.plugin{ name = "Echo", version = "2.1.0" }
host.category{ name = "echo", description = "Repeats text." }
host.command("echo", { name = "say", params = { { name = "text", type = "rest" } } }, function(ctx, text)
  return table.concat(text, " ")
end)
`), 0o644))

	var console bytes.Buffer
	a, err := Open(context.Background(), cfg, &console)
	require.NoError(t, err)
	defer a.Close()

	for _, r := range a.Results {
		assert.NoError(t, r.Err, r.ID)
	}
	assert.Contains(t, console.String(), "[Minecraft v1]")
	assert.Contains(t, console.String(), "[Admin v1]")
	assert.Contains(t, console.String(), "[Echo v2.1]")

	_, err = os.Stat(filepath.Join(cfg.Plugins.Dir, "Data", "minecraft", "Settings.yaml"))
	assert.NoError(t, err)

	ctx := context.Background()
	console.Reset()
	require.NoError(t, a.Host.Execute(ctx, "echo say hi there", 0))
	assert.Equal(t, "hi there\n", console.String())

	// guarded commands: statically configured members pass, others are refused.
	assert.Error(t, a.Host.Execute(ctx, "/auth members administrator", 42))
	assert.Equal(t, []string{"You are not authorized to use /auth members"}, a.Router.Drain(42))

	require.NoError(t, a.Host.Execute(ctx, "/auth grant administrator 42", 500))
	assert.Equal(t, []string{"Granted 42 to administrator."}, a.Router.Drain(500))

	require.NoError(t, a.Host.Execute(ctx, "/auth members administrator", 42))
	assert.Equal(t, []string{"administrator: 42"}, a.Router.Drain(42))
}
