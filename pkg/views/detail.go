package views

import (
	"context"
	"sync"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/mutation"
	"github.com/txn2/gamebuddy/pkg/paging"
)

// DefaultReviewPageSize is the review page size used when none is set.
const DefaultReviewPageSize = 5

const (
	msgGameFailed     = "Failed to load game details."
	msgReviewsFailed  = "Failed to load reviews."
	msgWishlistFailed = "Failed to check wishlist status."
	msgMyReviewFailed = "Failed to load your review."
)

// DetailAPI is the backend surface used by the game detail screen.
type DetailAPI interface {
	mutation.WishlistAPI
	mutation.ReviewAPI
	Game(ctx context.Context, id int64) (backend.Game, error)
	GameReviews(ctx context.Context, q backend.ReviewQuery) (backend.ReviewPage, error)
}

// Authenticator reports whether requests will carry a token.
type Authenticator interface {
	IsAuthenticated() bool
}

// DetailOptions configures a GameDetail.
type DetailOptions struct {
	ReviewPageSize int
	ReviewOrdering string
}

// GameDetail is one game's screen: the game, its reviews, and for a signed
// in user the wishlist membership and their own review. Each has its own
// load state so one failure does not hide the others.
type GameDetail struct {
	api    DetailAPI
	gameID int64
	auth   Authenticator
	opts   DetailOptions

	reviews  *paging.Fetcher[backend.ReviewQuery, backend.Review]
	wishlist *mutation.WishlistToggle
	editor   *mutation.ReviewEditor

	mu       sync.Mutex
	game     Slot[backend.Game]
	inList   Slot[bool]
	myReview Slot[*backend.Review]
	average  float64

	// averages holds the average reported by each review fetch until the
	// fetcher applies or supersedes it.
	averages   map[uint64]float64
	appliedSeq uint64
}

// NewGameDetail creates the view for gameID. Nothing is fetched until Load.
func NewGameDetail(api DetailAPI, auth Authenticator, gameID int64, opts DetailOptions) *GameDetail {
	if opts.ReviewPageSize < 1 {
		opts.ReviewPageSize = DefaultReviewPageSize
	}
	if opts.ReviewOrdering == "" {
		opts.ReviewOrdering = backend.DefaultReviewOrdering
	}

	d := &GameDetail{
		api:      api,
		gameID:   gameID,
		auth:     auth,
		opts:     opts,
		wishlist: mutation.NewWishlistToggle(api, gameID),
		editor:   mutation.NewReviewEditor(api, gameID),
		averages: make(map[uint64]float64),
	}
	d.reviews = paging.NewFetcher[backend.ReviewQuery, backend.Review](
		d.fetchReviews,
		paging.WithName("reviews"),
		messageWith(msgReviewsFailed),
	)
	d.reviews.OnChange(d.reviewsApplied)
	return d
}

func (d *GameDetail) fetchReviews(ctx context.Context, q backend.ReviewQuery) (paging.Page[backend.Review], error) {
	page, err := d.api.GameReviews(ctx, q)
	if err != nil {
		return paging.Page[backend.Review]{}, err
	}
	if seq, ok := paging.Sequence(ctx); ok {
		d.mu.Lock()
		if seq > d.appliedSeq {
			d.averages[seq] = page.AverageRating
		}
		d.mu.Unlock()
	}
	return page.Page, nil
}

// reviewsApplied adopts the average of the fetch whose page the fetcher just
// applied. Averages of older fetches are dropped with it.
func (d *GameDetail) reviewsApplied(v paging.View[backend.Review]) {
	if v.State != paging.StateLoaded && v.State != paging.StateError {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if v.Seq < d.appliedSeq {
		return
	}
	d.appliedSeq = v.Seq
	if avg, ok := d.averages[v.Seq]; ok && v.State == paging.StateLoaded {
		d.average = avg
	}
	for seq := range d.averages {
		if seq <= v.Seq {
			delete(d.averages, seq)
		}
	}
}

// Load runs the game, review list, wishlist status and own review fetches
// concurrently and returns when all have settled. The last two are skipped
// when signed out.
func (d *GameDetail) Load(ctx context.Context) {
	signedIn := d.auth != nil && d.auth.IsAuthenticated()

	d.mu.Lock()
	d.game = loadingSlot[backend.Game]()
	if signedIn {
		d.inList = loadingSlot[bool]()
		d.myReview = loadingSlot[*backend.Review]()
	}
	d.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g, err := d.fetchGame(ctx)
		d.mu.Lock()
		d.game = settle(g, err, msgGameFailed)
		d.mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		d.reviews.Load(ctx, d.reviewQuery(1))
	}()

	if signedIn {
		wg.Add(2)
		go func() {
			defer wg.Done()
			member, err := d.wishlist.Refresh(ctx)
			d.mu.Lock()
			d.inList = settle(member, err, msgWishlistFailed)
			d.mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			err := d.editor.Prepare(ctx)
			d.mu.Lock()
			d.myReview = settle(d.editor.Existing(), err, msgMyReviewFailed)
			d.mu.Unlock()
		}()
	}
	wg.Wait()
}

// GameID returns the game shown.
func (d *GameDetail) GameID() int64 {
	return d.gameID
}

// Game returns the game slot.
func (d *GameDetail) Game() Slot[backend.Game] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.game
}

// InWishlist returns the wishlist membership slot.
func (d *GameDetail) InWishlist() Slot[bool] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inList
}

// MyReview returns the signed-in user's review slot.
func (d *GameDetail) MyReview() Slot[*backend.Review] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.myReview
}

// Reviews returns the review list state.
func (d *GameDetail) Reviews() paging.View[backend.Review] {
	return d.reviews.View()
}

// AverageRating returns the game's average rating from the latest review
// page.
func (d *GameDetail) AverageRating() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.average
}

// ReviewWindow returns the review page numbers to render.
func (d *GameDetail) ReviewWindow() []int {
	p := d.reviews.View().Page
	return paging.Window(p.CurrentPage, p.TotalPages)
}

// ReviewsPage loads review page n. It is a no-op returning false when n is
// outside the known page range or is the current page.
func (d *GameDetail) ReviewsPage(ctx context.Context, n int) bool {
	p := d.reviews.View().Page
	if n < 1 || n > p.TotalPages || n == p.CurrentPage {
		return false
	}
	d.reviews.Load(ctx, d.reviewQuery(n))
	return true
}

// Editor returns the review editor for this game.
func (d *GameDetail) Editor() *mutation.ReviewEditor {
	return d.editor
}

// ToggleWishlist flips membership and updates the slot once confirmed.
func (d *GameDetail) ToggleWishlist(ctx context.Context) mutation.Result {
	r := d.wishlist.Toggle(ctx)
	if r.OK() {
		member, _ := d.wishlist.Member()
		d.mu.Lock()
		d.inList = Slot[bool]{State: paging.StateLoaded, Value: member}
		d.mu.Unlock()
	}
	return r
}

// SubmitReview submits the editor's draft and, once confirmed, reloads the
// review list from page 1.
func (d *GameDetail) SubmitReview(ctx context.Context) mutation.Result {
	r := d.editor.Submit(ctx)
	if r.OK() {
		d.afterReviewChange(ctx)
	}
	return r
}

// DeleteReview deletes the user's review and reloads the review list.
func (d *GameDetail) DeleteReview(ctx context.Context) mutation.Result {
	r := d.editor.Delete(ctx)
	if r.OK() {
		d.afterReviewChange(ctx)
	}
	return r
}

func (d *GameDetail) afterReviewChange(ctx context.Context) {
	d.mu.Lock()
	d.myReview = Slot[*backend.Review]{State: paging.StateLoaded, Value: d.editor.Existing()}
	d.mu.Unlock()
	d.reviews.Load(ctx, d.reviewQuery(1))
}

func (d *GameDetail) fetchGame(ctx context.Context) (backend.Game, error) {
	return d.api.Game(ctx, d.gameID)
}

func (d *GameDetail) reviewQuery(page int) backend.ReviewQuery {
	return backend.ReviewQuery{
		GameID:   d.gameID,
		Page:     page,
		PageSize: d.opts.ReviewPageSize,
		Ordering: d.opts.ReviewOrdering,
	}
}
