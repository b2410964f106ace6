// Package cli provides centralized command registration.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/commands/cli/auth"
	"github.com/andrei-cloud/go_cmdhost/internal/commands/cli/plugin"
	"github.com/andrei-cloud/go_cmdhost/internal/commands/cli/run"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	root.AddCommand(run.NewRunCommand())
	root.AddCommand(run.NewExecCommand())
	root.AddCommand(plugin.NewPluginCommand())
	root.AddCommand(auth.NewAuthCommand())

	return nil
}
