package query

import (
	"context"
	"sync"
)

// DefaultPageSize is used when a controller is created with no page size.
const DefaultPageSize = 50

// Trigger receives each newly committed query with the context of the call
// that committed it.
type Trigger func(ctx context.Context, q Query)

// Controller separates what the user is typing (draft) from what was last
// sent (committed).
type Controller struct {
	mu         sync.Mutex
	draft      Query
	committed  Query
	totalPages int
	trigger    Trigger
}

// NewController creates a controller whose draft and committed copies both
// start at initial. No fetch is triggered.
func NewController(initial Query, trigger Trigger) *Controller {
	if initial.Page < 1 {
		initial.Page = 1
	}
	if initial.PageSize < 1 {
		initial.PageSize = DefaultPageSize
	}
	return &Controller{draft: initial, committed: initial, trigger: trigger}
}

// Draft returns the draft query.
func (c *Controller) Draft() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Committed returns the committed query.
func (c *Controller) Committed() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// TotalPages returns the page count last reported by SetTotalPages.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// SetSearch edits the draft search text.
func (c *Controller) SetSearch(s string) {
	c.edit(func(q *Query) { q.Search = s })
}

// SetGenre edits the draft genre filter.
func (c *Controller) SetGenre(g string) {
	c.edit(func(q *Query) { q.Genre = g })
}

// SetPlatform edits the draft platform filter.
func (c *Controller) SetPlatform(p string) {
	c.edit(func(q *Query) { q.Platform = p })
}

// SetPageSize edits the draft page size. Non-positive sizes are ignored.
func (c *Controller) SetPageSize(n int) {
	if n < 1 {
		return
	}
	c.edit(func(q *Query) { q.PageSize = n })
}

// Commit copies the draft into the committed query with page reset to 1 and
// triggers one fetch.
func (c *Controller) Commit(ctx context.Context) Query {
	c.mu.Lock()
	q := c.draft
	q.Page = 1
	c.draft.Page = 1
	c.committed = q
	trigger := c.trigger
	c.mu.Unlock()

	if trigger != nil {
		trigger(ctx, q)
	}
	return q
}

// PageChange moves the committed query to page n and triggers one fetch.
// It is a no-op returning false when n is outside [1, TotalPages] or is
// already the committed page. Other committed fields are untouched.
func (c *Controller) PageChange(ctx context.Context, n int) bool {
	c.mu.Lock()
	if n < 1 || n > c.totalPages || n == c.committed.Page {
		c.mu.Unlock()
		return false
	}
	c.committed.Page = n
	c.draft.Page = n
	q := c.committed
	trigger := c.trigger
	c.mu.Unlock()

	if trigger != nil {
		trigger(ctx, q)
	}
	return true
}

// SetTotalPages records the page count from the latest loaded page.
func (c *Controller) SetTotalPages(n int) {
	c.mu.Lock()
	c.totalPages = max(n, 0)
	c.mu.Unlock()
}

func (c *Controller) edit(fn func(*Query)) {
	c.mu.Lock()
	fn(&c.draft)
	c.mu.Unlock()
}
