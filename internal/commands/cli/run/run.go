// Package run provides the commands that start the host.
package run

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/app"
	"github.com/andrei-cloud/go_cmdhost/internal/config"
	"github.com/andrei-cloud/go_cmdhost/internal/console"
	"github.com/andrei-cloud/go_cmdhost/internal/logging"
	"github.com/andrei-cloud/go_cmdhost/internal/server"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the command host",
		Long: `Load every plugin, start the remote transport when a login identity is
configured, and read commands from the console until exit, stop, quit or close.`,
		RunE: runHost,
	}

	// Add run command specific flags that can override config.
	cmd.Flags().Bool("tui", false, "use the full-screen console prompt")
	cmd.Flags().Bool("no-server", false, "do not start the remote transport")

	return cmd
}

func runHost(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	if cmd.Flags().Changed("tui") {
		cfg.Console.TUI, _ = cmd.Flags().GetBool("tui")
	}
	noServer, _ := cmd.Flags().GetBool("no-server")

	// Create a context that will be canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	if cfg.Console.TUI {
		// the prompt owns the terminal, logs go to a file next to the plugins.
		logFile, err := os.OpenFile(filepath.Join(cfg.Plugins.Dir, "go_cmdhost.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			defer logFile.Close()
			logging.InitLoggerTo(logFile, cfg.Log.Level == "debug", false)
		}
	}

	fmt.Fprintln(out, console.Header("Loading plugins"))
	a, err := app.Open(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("error during plugin shutdown")
		}
	}()

	for _, r := range a.Results {
		if r.Err != nil {
			fmt.Fprintln(out, console.Error(fmt.Sprintf("Error: %s: %v", r.ID, r.Err)))
		}
	}

	if !noServer && cfg.Server.Enabled {
		srv, err := startServer(out, cfg, a)
		if err != nil {
			return err
		}
		if srv != nil {
			defer func() {
				log.Info().Msg("shutting down server...")
				if err := srv.Stop(); err != nil {
					log.Error().Err(err).Msg("error during server shutdown")
				}
			}()
		}
	}

	if cfg.Console.TUI {
		return console.RunTUI(ctx, a.Host, "go_cmdhost", a.Router.SetConsole)
	}
	return console.RunLine(ctx, cmd.InOrStdin(), out, a.Host)
}

// startServer starts the remote transport when a login identity is set.
func startServer(out io.Writer, cfg *config.Config, a *app.App) (*server.Server, error) {
	if !cfg.HasLogin() {
		log.Warn().
			Str("event", "server_disabled").
			Msg("login.username and login.password are not set, remote transport disabled")
		return nil, nil
	}

	fmt.Fprintln(out, console.Header("Connecting"))
	key := server.Key(cfg.Login.Username, cfg.Login.Password)
	srv, err := server.NewServer(cfg.Address(), key, a.Host, a.Router)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()
	go func() {
		if err := <-errChan; err != nil {
			log.Error().Err(err).Str("address", cfg.Address()).Msg("server stopped with error")
		}
	}()

	return srv, nil
}
