// Package auth provides authorization membership commands.
package auth

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/go_cmdhost/internal/app"
	"github.com/andrei-cloud/go_cmdhost/internal/authz"
	"github.com/andrei-cloud/go_cmdhost/internal/config"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorization group commands",
		Long:  `Commands for managing which remote senders belong to authorization groups.`,
	}

	cmd.AddCommand(newGrantCommand())
	cmd.AddCommand(newRevokeCommand())
	cmd.AddCommand(newListCommand())

	return cmd
}

func withStore(fn func(cmd *cobra.Command, store *authz.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenAuth(config.Get())
		if err != nil {
			return err
		}
		defer store.Close()

		return fn(cmd, store, args)
	}
}

func parseSender(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid sender id %q", s)
	}
	return id, nil
}

func newGrantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grant GROUP SENDER",
		Short: "Add a sender to a group",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, store *authz.Store, args []string) error {
			sender, err := parseSender(args[1])
			if err != nil {
				return err
			}
			if err := store.Grant(cmd.Context(), args[0], sender); err != nil {
				return err
			}
			cmd.Printf("Granted %d to %s\n", sender, args[0])
			return nil
		}),
	}
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke GROUP SENDER",
		Short: "Remove a sender from a group",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, store *authz.Store, args []string) error {
			sender, err := parseSender(args[1])
			if err != nil {
				return err
			}
			removed, err := store.Revoke(cmd.Context(), args[0], sender)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%d is not in %s", sender, args[0])
			}
			cmd.Printf("Revoked %d from %s\n", sender, args[0])
			return nil
		}),
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [GROUP]",
		Short: "List group members",
		Args:  cobra.MaximumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *authz.Store, args []string) error {
			group := ""
			if len(args) == 1 {
				group = args[0]
			}
			members, err := store.Members(cmd.Context(), group)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "Group\tSender")
			_, _ = fmt.Fprintln(w, "-----\t------")
			for _, m := range members {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", m.Group, m.Sender)
			}
			return w.Flush()
		}),
	}
}
