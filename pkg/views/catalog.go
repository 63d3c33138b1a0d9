package views

import (
	"context"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/paging"
	"github.com/txn2/gamebuddy/pkg/query"
)

const msgCatalogFailed = "Failed to load games. Please try again."

// CatalogAPI loads catalog pages.
type CatalogAPI interface {
	ListGames(ctx context.Context, q query.Query) (paging.Page[backend.Game], error)
}

// Catalog is the game list screen. Its query controller decides when to
// fetch, and its fetcher keeps only the newest result.
type Catalog struct {
	query   *query.Controller
	fetcher *paging.Fetcher[query.Query, backend.Game]
}

// NewCatalog creates a catalog view. Nothing is fetched until Start.
func NewCatalog(api CatalogAPI, initial query.Query) *Catalog {
	c := &Catalog{}
	c.fetcher = paging.NewFetcher[query.Query, backend.Game](api.ListGames, paging.WithName("catalog"), messageWith(msgCatalogFailed))
	c.query = query.NewController(initial, func(ctx context.Context, q query.Query) {
		c.fetcher.Fetch(ctx, q)
	})
	c.fetcher.OnChange(c.applied)
	return c
}

// Query returns the controller bound to the search and filter inputs.
func (c *Catalog) Query() *query.Controller {
	return c.query
}

// OnChange registers fn to receive every applied view. It replaces the
// previous callback.
func (c *Catalog) OnChange(fn func(paging.View[backend.Game])) {
	c.fetcher.OnChange(func(v paging.View[backend.Game]) {
		c.applied(v)
		fn(v)
	})
}

// Start fetches the committed query, as on first render. ctx bounds that
// fetch only; Commit and PageChange pass their own.
func (c *Catalog) Start(ctx context.Context) uint64 {
	return c.fetcher.Fetch(ctx, c.query.Committed())
}

// View returns the current list state.
func (c *Catalog) View() paging.View[backend.Game] {
	return c.fetcher.View()
}

// Window returns the page numbers to render for the loaded page.
func (c *Catalog) Window() []int {
	return paging.Window(c.query.Committed().Page, c.query.TotalPages())
}

// Wait blocks until all fetches started by this view have finished.
func (c *Catalog) Wait() {
	c.fetcher.Wait()
}

func (c *Catalog) applied(v paging.View[backend.Game]) {
	if v.State == paging.StateLoaded {
		c.query.SetTotalPages(v.Page.TotalPages)
	}
}
