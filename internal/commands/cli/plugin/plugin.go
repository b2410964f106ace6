// Package plugin provides plugin management commands.
package plugin

import "github.com/spf13/cobra"

// NewPluginCommand creates the plugin command group.
func NewPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugin",
		Aliases: []string{"plugins"},
		Short:   "List and scaffold plugins",
		Long: `Commands for the plugins directory. Built-in plugins are compiled in;
Lua scripts (name.lua or name/plugin.lua) and WASM modules (name.wasm) are
loaded from the directory set by --plugins-dir.`,
		Example: `  go_cmdhost plugin list
  go_cmdhost plugin create weather --desc "Reports the weather"`,
	}

	cmd.AddCommand(NewCreateCommand())
	cmd.AddCommand(NewListCommand())

	return cmd
}
