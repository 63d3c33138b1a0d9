package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) reviewCommand() *cobra.Command {
	var rating int
	var text string
	cmd := &cobra.Command{
		Use:   "review ID",
		Short: "Write or update your review of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}

			d := a.platform.GameDetail(id)
			// A failed lookup is logged; the server rejects a duplicate create.
			_ = d.Editor().Prepare(cmd.Context())
			d.Editor().SetRating(rating)
			d.Editor().SetText(text)
			return a.report(cmd, d.SubmitReview(cmd.Context()))
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&text, "text", "", "review text")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete your review of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			return a.report(cmd, a.platform.GameDetail(id).DeleteReview(cmd.Context()))
		},
	})
	return cmd
}
