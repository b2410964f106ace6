package run

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/app"
	"github.com/andrei-cloud/go_cmdhost/internal/config"
	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec LINE...",
		Short: "Run one command and exit",
		Long: `Load every plugin, run a single command line as the console or as the
given remote sender, print the replies and dispose the plugins.`,
		Example: `  go_cmdhost exec help
  go_cmdhost exec --sender 76561198000000001 -- /mc status`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}

	cmd.Flags().Uint64("sender", dispatch.ConsoleSender, "sender id, 0 is the console")

	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetUint64("sender")
	out := cmd.OutOrStdout()

	a, err := app.Open(cmd.Context(), config.Get(), out)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Host.Execute(cmd.Context(), strings.Join(args, " "), sender)
	if sender != dispatch.ConsoleSender {
		for _, line := range a.Router.Drain(sender) {
			fmt.Fprintln(out, line)
		}
	}
	return err
}
