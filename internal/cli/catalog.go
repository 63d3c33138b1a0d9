package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/paging"
	"github.com/txn2/gamebuddy/pkg/query"
)

func parseGameID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid game id %q", s)
	}
	return id, nil
}

func (a *app) gamesCommand() *cobra.Command {
	q := query.Query{}
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Search the game catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page := q.Page
			q.Page = 1
			c := a.platform.Catalog(q)
			c.Start(cmd.Context())
			c.Wait()
			v := c.View()
			if page > 1 && v.State == paging.StateLoaded {
				if !c.Query().PageChange(cmd.Context(), page) {
					return fmt.Errorf("page %d is out of range (1-%d)", page, c.Query().TotalPages())
				}
				c.Wait()
				v = c.View()
			}
			if v.State == paging.StateError {
				return a.done(errors.New(v.Message))
			}
			printGames(cmd.OutOrStdout(), v.Page, c.Window())
			return a.done(nil)
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "search text")
	cmd.Flags().StringVar(&q.Genre, "genre", "", "genre filter")
	cmd.Flags().StringVar(&q.Platform, "platform", "", "platform filter")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 0, "games per page (default catalog.page_size)")
	return cmd
}

func printGames(w io.Writer, page paging.Page[backend.Game], window []int) {
	if page.Empty() {
		_, _ = fmt.Fprintln(w, "No games found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tRELEASED\tMETACRITIC\tGENRES\tPLATFORMS")
	for _, g := range page.Items {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Name, g.Released, metacritic(g.MetacriticScore), g.Genres.Summary(), g.Platforms.Summary())
	}
	_ = tw.Flush()
	printPager(w, page.CurrentPage, page.TotalPages, window)
}

func metacritic(score int) string {
	if score <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d (%s)", score, backend.MetacriticTier(score))
}

func printPager(w io.Writer, current, total int, window []int) {
	if total < 1 {
		return
	}
	parts := make([]string, len(window))
	for i, n := range window {
		if n == current {
			parts[i] = fmt.Sprintf("[%d]", n)
		} else {
			parts[i] = strconv.Itoa(n)
		}
	}
	_, _ = fmt.Fprintf(w, "Page %d of %d: %s\n", current, total, strings.Join(parts, " "))
}

func (a *app) gameCommand() *cobra.Command {
	var reviewsPage int
	cmd := &cobra.Command{
		Use:   "game ID",
		Short: "Show a game with its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			if err := a.platform.Session().Wait(cmd.Context()); err != nil {
				return err
			}

			d := a.platform.GameDetail(id)
			d.Load(cmd.Context())
			if reviewsPage > 1 {
				d.ReviewsPage(cmd.Context(), reviewsPage)
			}

			g := d.Game()
			if !g.Loaded() {
				return a.done(errors.New(g.Message))
			}
			out := cmd.OutOrStdout()
			printGame(out, g.Value)

			if in := d.InWishlist(); in.State != paging.StateIdle {
				if in.Loaded() {
					_, _ = fmt.Fprintf(out, "In wishlist: %t\n", in.Value)
				} else {
					_, _ = fmt.Fprintf(out, "In wishlist: %s\n", in.Message)
				}
			}
			if mine := d.MyReview(); mine.Loaded() && mine.Value != nil {
				_, _ = fmt.Fprintf(out, "Your review: %d/5 %s\n", mine.Value.Rating, mine.Value.Text)
			}

			reviews := d.Reviews()
			_, _ = fmt.Fprintf(out, "\nReviews (average %.1f)\n", d.AverageRating())
			switch {
			case reviews.State == paging.StateError:
				_, _ = fmt.Fprintln(out, reviews.Message)
			case reviews.Empty():
				_, _ = fmt.Fprintln(out, "No reviews yet.")
			default:
				for _, r := range reviews.Page.Items {
					_, _ = fmt.Fprintf(out, "  %d/5 %s: %s\n", r.Rating, r.Author(), r.Text)
				}
				printPager(out, reviews.Page.CurrentPage, reviews.Page.TotalPages, d.ReviewWindow())
			}
			return a.done(nil)
		},
	}
	cmd.Flags().IntVar(&reviewsPage, "reviews-page", 1, "review page number")
	return cmd
}

func printGame(w io.Writer, g backend.Game) {
	_, _ = fmt.Fprintf(w, "%s (#%d)\n", g.Name, g.ID)
	if t, ok := g.ReleaseDate(); ok {
		_, _ = fmt.Fprintf(w, "Released: %s\n", t.Format("January 2, 2006"))
	}
	_, _ = fmt.Fprintf(w, "Metacritic: %s\n", metacritic(g.MetacriticScore))
	if g.Rating > 0 {
		_, _ = fmt.Fprintf(w, "Rating: %.2f\n", g.Rating)
	}
	if g.Playtime > 0 {
		_, _ = fmt.Fprintf(w, "Playtime: %dh\n", g.Playtime)
	}
	if g.ESRBRating != "" {
		_, _ = fmt.Fprintf(w, "ESRB: %s\n", g.ESRBRating)
	}
	if len(g.Genres) > 0 {
		_, _ = fmt.Fprintf(w, "Genres: %s\n", strings.Join(g.Genres, ", "))
	}
	if len(g.Platforms) > 0 {
		_, _ = fmt.Fprintf(w, "Platforms: %s\n", strings.Join(g.Platforms, ", "))
	}
	if len(g.Stores) > 0 {
		_, _ = fmt.Fprintf(w, "Stores: %s\n", strings.Join(g.Stores, ", "))
	}
	if g.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", g.Description)
	}
}
