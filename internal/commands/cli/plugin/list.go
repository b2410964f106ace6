package plugin

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/app"
	"github.com/andrei-cloud/go_cmdhost/internal/config"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Long:  `Load every plugin and list its metadata and categories, including modules that failed to load.`,
		RunE:  runListPlugins,
	}
}

func runListPlugins(cmd *cobra.Command, _ []string) error {
	// Disable logging for CLI commands.
	log.Logger = log.Logger.Level(zerolog.Disabled)

	a, err := app.Open(cmd.Context(), config.Get(), io.Discard)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSource\tName\tVersion\tCategories\tAuthor\tStatus")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t-------\t----------\t------\t------")

	loaded := make(map[string]bool)
	for _, info := range a.Plugins.ListPlugins() {
		loaded[info.ID] = true
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			info.ID,
			info.Source,
			info.Name,
			info.Version,
			strings.Join(info.Categories, ","),
			info.Author,
			info.State)
	}
	for _, r := range a.Results {
		if r.Err == nil || loaded[r.ID] {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Source, r.Info.Name, r.Info.Version, "", r.Info.Author, "failed: "+r.Err.Error())
	}

	return w.Flush()
}
