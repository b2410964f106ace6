// Package cli provides the CLI command structure for go_cmdhost.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andrei-cloud/go_cmdhost/internal/config"
	"github.com/andrei-cloud/go_cmdhost/internal/logging"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "go_cmdhost",
		Short: "Plugin host and text-command dispatcher",
		Long: `A plugin host that routes short text commands from the local console
and remote chat senders to handlers contributed by Go, Lua and WASM plugins.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile, map[string]*pflag.Flag{
				"log.level":   flags.Lookup("log-level"),
				"log.format":  flags.Lookup("log-format"),
				"plugins.dir": flags.Lookup("plugins-dir"),
			}); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// Normalize log level and format from config.
			cfg := config.Get()
			logLevel := strings.TrimSpace(strings.ToLower(cfg.Log.Level))
			logFormat := strings.TrimSpace(strings.ToLower(cfg.Log.Format))
			logging.InitLoggerTo(os.Stderr, logLevel == "debug", logFormat == "human")

			return nil
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_cmdhost/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "human", "logging format (human, json)")
	rootCmd.PersistentFlags().String("plugins-dir", "Plugins", "path to plugin directory")

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
