package views

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/paging"
)

const detailGameID = int64(2)

func TestGameDetail_LoadAllSlots(t *testing.T) {
	f := newFixture(t, 4)
	f.srv.AddWishlist(f.userID, detailGameID)
	own := f.srv.AddReview(f.userID, detailGameID, 4, "Tight controls.")
	other := f.srv.AddUser("ridley", "pw", "R", "D")
	f.srv.AddReview(other, detailGameID, 2, "Too hard.")

	d := NewGameDetail(f.backend, f.mgr, detailGameID, DetailOptions{ReviewPageSize: 1})
	d.Load(context.Background())

	g := d.Game()
	require.True(t, g.Loaded(), g.Message)
	assert.Equal(t, "Game 02", g.Value.Name)

	in := d.InWishlist()
	require.True(t, in.Loaded())
	assert.True(t, in.Value)

	mine := d.MyReview()
	require.True(t, mine.Loaded())
	require.NotNil(t, mine.Value)
	assert.Equal(t, own, mine.Value.ID)
	assert.Equal(t, 4, d.Editor().Draft().Rating)

	reviews := d.Reviews()
	require.Equal(t, paging.StateLoaded, reviews.State)
	assert.Equal(t, 2, reviews.Page.TotalPages)
	assert.InDelta(t, 3.0, d.AverageRating(), 0.001)
	assert.Equal(t, []int{1, 2}, d.ReviewWindow())
}

func TestGameDetail_OneFailureDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t, 4)
	f.srv.Fail(http.MethodGet, "/wishlist/game/2/", http.StatusInternalServerError, `{"error":"wishlist offline"}`, 1)

	d := NewGameDetail(f.backend, f.mgr, detailGameID, DetailOptions{})
	d.Load(context.Background())

	in := d.InWishlist()
	assert.Equal(t, paging.StateError, in.State)
	assert.Equal(t, "wishlist offline", in.Message)
	assert.True(t, d.Game().Loaded())
	assert.True(t, d.MyReview().Loaded())
	assert.Nil(t, d.MyReview().Value)
	assert.Equal(t, paging.StateLoaded, d.Reviews().State)
	assert.True(t, d.Reviews().Empty())
	assert.Equal(t, []int{1}, d.ReviewWindow())
}

func TestGameDetail_SignedOutSkipsPersonalFetches(t *testing.T) {
	f := newFixture(t, 4)
	require.NoError(t, f.mgr.Logout(context.Background()))
	f.srv.ResetCalls()

	d := NewGameDetail(f.backend, f.mgr, detailGameID, DetailOptions{})
	d.Load(context.Background())

	assert.True(t, d.Game().Loaded())
	assert.Equal(t, paging.StateIdle, d.InWishlist().State)
	assert.Zero(t, f.srv.CountCalls(http.MethodGet, "/wishlist/"))
	assert.Zero(t, f.srv.CountCalls(http.MethodGet, "/reviews/game/2/user/"))
}

func TestGameDetail_ReviewPaging(t *testing.T) {
	f := newFixture(t, 4)
	for i, name := range []string{"a", "b", "c"} {
		uid := f.srv.AddUser(name, "pw", name, name)
		f.srv.AddReview(uid, detailGameID, i+1, "review by "+name)
	}

	d := NewGameDetail(f.backend, f.mgr, detailGameID, DetailOptions{ReviewPageSize: 1})
	d.Load(context.Background())
	require.Equal(t, 3, d.Reviews().Page.TotalPages)

	assert.False(t, d.ReviewsPage(context.Background(), 1), "already on page 1")
	assert.False(t, d.ReviewsPage(context.Background(), 4))
	require.True(t, d.ReviewsPage(context.Background(), 3))
	v := d.Reviews()
	assert.Equal(t, 3, v.Page.CurrentPage)
	require.Len(t, v.Page.Items, 1)
	assert.Equal(t, "a", v.Page.Items[0].Author(), "oldest edit is last")
}

func TestGameDetail_MutationsUpdateSlots(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	d := NewGameDetail(f.backend, f.mgr, detailGameID, DetailOptions{})
	d.Load(ctx)

	r := d.ToggleWishlist(ctx)
	require.True(t, r.OK(), r.Message)
	assert.True(t, d.InWishlist().Value)

	d.Editor().SetRating(5)
	d.Editor().SetText("Best in series.")
	r = d.SubmitReview(ctx)
	require.True(t, r.OK(), r.Message)
	require.NotNil(t, d.MyReview().Value)
	assert.Equal(t, 1, d.Reviews().Page.TotalCount)
	assert.InDelta(t, 5.0, d.AverageRating(), 0.001)

	r = d.DeleteReview(ctx)
	require.True(t, r.OK(), r.Message)
	assert.Nil(t, d.MyReview().Value)
	assert.True(t, d.Reviews().Empty())
}

// gatedReviews serves review pages with a fixed average per call. Page 2
// blocks until gate is closed.
type gatedReviews struct {
	DetailAPI

	started chan struct{}
	gate    chan struct{}

	mu    sync.Mutex
	calls int
}

func (g *gatedReviews) GameReviews(_ context.Context, q backend.ReviewQuery) (backend.ReviewPage, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()

	avg := 4.5
	switch {
	case q.Page == 2:
		close(g.started)
		<-g.gate
		avg = 2.0
	case call > 1:
		avg = 3.5
	}
	return backend.ReviewPage{
		Page:          paging.Page[backend.Review]{CurrentPage: q.Page, TotalPages: 2},
		AverageRating: avg,
	}, nil
}

func TestGameDetail_StaleReviewPageKeepsAverage(t *testing.T) {
	api := &gatedReviews{started: make(chan struct{}), gate: make(chan struct{})}
	d := NewGameDetail(api, nil, detailGameID, DetailOptions{})
	ctx := context.Background()

	v := d.reviews.Load(ctx, d.reviewQuery(1))
	require.Equal(t, paging.StateLoaded, v.State)
	assert.InDelta(t, 4.5, d.AverageRating(), 0.001)

	done := make(chan bool)
	go func() { done <- d.ReviewsPage(ctx, 2) }()
	<-api.started

	v = d.reviews.Load(ctx, d.reviewQuery(1))
	require.Equal(t, paging.StateLoaded, v.State)
	assert.InDelta(t, 3.5, d.AverageRating(), 0.001)

	close(api.gate)
	assert.True(t, <-done)

	assert.Equal(t, 1, d.Reviews().Page.CurrentPage)
	assert.InDelta(t, 3.5, d.AverageRating(), 0.001, "superseded page must not change the average")
	d.mu.Lock()
	assert.Empty(t, d.averages)
	d.mu.Unlock()
}
