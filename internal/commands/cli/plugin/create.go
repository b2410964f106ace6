package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/config"
	"github.com/andrei-cloud/go_cmdhost/internal/plugins"
)

var (
	pluginDesc    string
	pluginVersion string
	pluginAuthor  string
)

var validID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new Lua plugin",
		Long: `Create a new Lua plugin in the plugins directory. This will:
1. Create the plugin directory
2. Write a plugin.lua skeleton with one category and one command`,
		Args: cobra.ExactArgs(1),
		RunE: runCreatePlugin,
	}

	// Add flags.
	cmd.Flags().StringVarP(&pluginDesc, "desc", "d", "", "Plugin description")
	cmd.Flags().StringVarP(&pluginVersion, "version", "v", "0.1.0", "Plugin version")
	cmd.Flags().StringVarP(&pluginAuthor, "author", "a", "", "Plugin author")

	return cmd
}

func runCreatePlugin(cmd *cobra.Command, args []string) error {
	dir := filepath.Join(config.Get().Plugins.Dir, strings.ToLower(args[0]))
	path, err := Scaffold(dir, args[0], pluginDesc, pluginVersion, pluginAuthor)
	if err != nil {
		return err
	}

	cmd.Printf("Successfully created plugin %s at %s\n", args[0], path)

	return nil
}

// Scaffold writes a plugin.lua skeleton for name into dir.
func Scaffold(dir, name, desc, version, author string) (string, error) {
	id := strings.ToLower(name)
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid plugin name %q", name)
	}

	path := filepath.Join(dir, plugins.LuaEntry)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("plugin already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plugin directory: %w", err)
	}

	content := fmt.Sprintf(`-- %[1]s plugin.
host.plugin{
  name = %[2]q,
  description = %[3]q,
  author = %[4]q,
  version = %[5]q,
}

-- Written to Settings.yaml on first start, then read back from it.
settings = {
  greeting = "Hello",
}

host.category{ name = %[1]q, description = "Commands of the %[2]s plugin." }

host.command(%[1]q, {
  name = "hello",
  description = "Greets someone.",
  params = {
    { name = "who", type = "string", optional = true },
  },
}, function(ctx, who)
  return ctx.settings.greeting .. ", " .. (who or "world") .. "!"
end)

function initialize(ctx)
end

function dispose()
end
`, id, name, desc, author, version)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to create plugin file: %w", err)
	}

	return path, nil
}
