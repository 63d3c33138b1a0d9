package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/txn2/gamebuddy/pkg/paging"
)

// DefaultReviewOrdering lists the most recently edited reviews first.
const DefaultReviewOrdering = "-updated_at"

const (
	msgReviewsFailed      = "Failed to load reviews."
	msgMyReviewFailed     = "Failed to load your review."
	msgReviewSubmitFailed = "Failed to submit review."
	msgReviewDeleteFailed = "Failed to delete review."
)

// ReviewAuthor is the user block embedded in a review.
type ReviewAuthor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Review is one user's review of one game.
type Review struct {
	ID        int64        `json:"id"`
	User      ReviewAuthor `json:"user"`
	Username  string       `json:"username"`
	Game      int64        `json:"game"`
	Rating    int          `json:"rating"`
	Text      string       `json:"review"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Author returns the best available author name.
func (r Review) Author() string {
	if r.Username != "" {
		return r.Username
	}
	return r.User.Username
}

// ReviewInput is the body of a create or update.
type ReviewInput struct {
	GameID int64
	Rating int
	Text   string
}

type reviewBody struct {
	Game   int64  `json:"game"`
	GameID int64  `json:"game_id"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (in ReviewInput) body() reviewBody {
	return reviewBody{Game: in.GameID, GameID: in.GameID, Rating: in.Rating, Review: in.Text}
}

// ReviewQuery selects a page of a game's reviews.
type ReviewQuery struct {
	GameID   int64
	Page     int
	PageSize int
	Ordering string
}

// ReviewPage is a page of reviews plus the game's average rating.
type ReviewPage struct {
	paging.Page[Review]
	AverageRating float64
}

type reviewListResponse struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	Pagination    struct {
		TotalReviews int `json:"total_reviews"`
		TotalPages   int `json:"total_pages"`
		CurrentPage  int `json:"current_page"`
		PageSize     int `json:"page_size"`
	} `json:"pagination"`
}

// GameReviews fetches one page of reviews for a game.
func (c *Client) GameReviews(ctx context.Context, q ReviewQuery) (ReviewPage, error) {
	path, err := gameReviewsEndpoint.Path(map[string]any{"id": q.GameID})
	if err != nil {
		return ReviewPage{}, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Ordering == "" {
		q.Ordering = DefaultReviewOrdering
	}
	params := url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"ordering": {q.Ordering},
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}

	resp, err := c.api.Get(ctx, path, params)
	if err != nil {
		return ReviewPage{}, fmt.Errorf("listing reviews for game %d: %w", q.GameID, err)
	}
	if err := resp.Err(msgReviewsFailed); err != nil {
		return ReviewPage{}, err
	}

	var body reviewListResponse
	if err := resp.Decode(&body); err != nil {
		return ReviewPage{}, fmt.Errorf("listing reviews for game %d: %w", q.GameID, err)
	}

	p := body.Pagination
	size := p.PageSize
	if size <= 0 {
		size = q.PageSize
	}
	current := p.CurrentPage
	if current < 1 {
		current = q.Page
	}
	total := paging.TotalPages(p.TotalPages, p.TotalReviews, size)
	if total == 0 {
		total = 1
	}

	return ReviewPage{
		Page: paging.Page[Review]{
			Items:       body.Reviews,
			CurrentPage: current,
			TotalPages:  total,
			TotalCount:  p.TotalReviews,
			PageSize:    size,
		},
		AverageRating: body.AverageRating,
	}, nil
}

type myReviewResponse struct {
	HasReview *bool `json:"has_review"`
	Review
}

// MyReview returns the signed-in user's review of a game, or nil when there
// is none.
func (c *Client) MyReview(ctx context.Context, gameID int64) (*Review, error) {
	path, err := myReviewEndpoint.Path(map[string]any{"id": gameID})
	if err != nil {
		return nil, err
	}
	resp, err := c.api.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching own review for game %d: %w", gameID, err)
	}
	if err := resp.Err(msgMyReviewFailed); err != nil {
		return nil, err
	}

	var body myReviewResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("fetching own review for game %d: %w", gameID, err)
	}
	if (body.HasReview != nil && !*body.HasReview) || body.ID == 0 {
		return nil, nil
	}
	r := body.Review
	return &r, nil
}

// CreateReview posts a new review and returns it with its server id.
func (c *Client) CreateReview(ctx context.Context, in ReviewInput) (Review, error) {
	resp, err := c.api.Post(ctx, reviewsPath, in.body())
	if err != nil {
		return Review{}, fmt.Errorf("creating review: %w", err)
	}
	return decodeReview(resp.Err(msgReviewSubmitFailed), resp.Decode)
}

// UpdateReview replaces review id.
func (c *Client) UpdateReview(ctx context.Context, id int64, in ReviewInput) (Review, error) {
	path, err := reviewEndpoint.Path(map[string]any{"id": id})
	if err != nil {
		return Review{}, err
	}
	resp, err := c.api.Put(ctx, path, in.body())
	if err != nil {
		return Review{}, fmt.Errorf("updating review %d: %w", id, err)
	}
	r, err := decodeReview(resp.Err(msgReviewSubmitFailed), resp.Decode)
	if err == nil && r.ID == 0 {
		r.ID = id
	}
	return r, err
}

// DeleteReview removes review id.
func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	path, err := reviewEndpoint.Path(map[string]any{"id": id})
	if err != nil {
		return err
	}
	resp, err := c.api.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting review %d: %w", id, err)
	}
	return resp.Err(msgReviewDeleteFailed)
}

func decodeReview(statusErr error, decode func(any) error) (Review, error) {
	if statusErr != nil {
		return Review{}, statusErr
	}
	var r Review
	if err := decode(&r); err != nil {
		return Review{}, fmt.Errorf("decoding review: %w", err)
	}
	return r, nil
}
