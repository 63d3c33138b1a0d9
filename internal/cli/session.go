package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset session storage",
	}
	cmd.AddCommand(a.sessionStatusCommand(), a.sessionResetCommand())
	return cmd
}

func (a *app) sessionStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session storage and who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := a.platform.Session()
			if err := sess.Wait(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Storage: %s\n", a.platform.Config().Session.Storage)
			if u, ok := sess.User(); ok {
				_, _ = fmt.Fprintf(out, "Signed in: %s\n", u.Username)
			} else {
				_, _ = fmt.Fprintln(out, "Signed in: no")
			}

			schema, ok := a.platform.Schema()
			if !ok {
				return nil
			}
			version, dirty, err := schema.SchemaVersion()
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			if dirty {
				_, _ = fmt.Fprintf(out, "Schema version: %d (dirty)\n", version)
			} else {
				_, _ = fmt.Fprintf(out, "Schema version: %d\n", version)
			}
			return nil
		},
	}
}

func (a *app) sessionResetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every stored session and recreate the SQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, ok := a.platform.Schema()
			if !ok {
				return fmt.Errorf("session reset needs postgres or sqlite storage, not %s",
					a.platform.Config().Session.Storage)
			}
			if !yes {
				return errors.New("session reset drops every stored session; pass --yes to confirm")
			}
			if err := schema.ResetSchema(); err != nil {
				return fmt.Errorf("resetting session storage: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Session storage reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping stored sessions")
	return cmd
}
