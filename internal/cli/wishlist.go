package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/txn2/gamebuddy/pkg/mutation"
)

func (a *app) wishlistCommand() *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		if err := a.requireAuth(cmd.Context()); err != nil {
			return err
		}
		p := a.platform.Profile()
		p.Load(cmd.Context())
		wl := p.Wishlist()
		if !wl.Loaded() {
			return a.done(errors.New(wl.Message))
		}

		out := cmd.OutOrStdout()
		if len(wl.Value) == 0 {
			_, _ = fmt.Fprintln(out, "Your wishlist is empty.")
			return a.done(nil)
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tADDED")
		for _, e := range wl.Value {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Game, e.GameDetails.Name, e.CreatedAt.Format("2006-01-02"))
		}
		_ = tw.Flush()
		return a.done(nil)
	}

	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show or change your wishlist",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved games",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "toggle ID",
			Short: "Add a game, or remove it if already saved",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseGameID(args[0])
				if err != nil {
					return err
				}
				if err := a.requireAuth(cmd.Context()); err != nil {
					return err
				}
				t := mutation.NewWishlistToggle(a.platform.Backend(), id)
				return a.report(cmd, t.Toggle(cmd.Context()))
			},
		},
	)
	return cmd
}
