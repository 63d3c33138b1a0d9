package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/txn2/gamebuddy/pkg/apiclient"
	"github.com/txn2/gamebuddy/pkg/paging"
	"github.com/txn2/gamebuddy/pkg/query"
)

// Metacritic tiers.
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierAverage   = "average"
	TierPoor      = "poor"
)

const (
	msgGamesFailed = "Failed to load games."
	msgGameFailed  = "Failed to load game details."
)

// Game is a catalog entry.
type Game struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Released        string  `json:"released"`
	BackgroundImage string  `json:"background_image"`
	Rating          float64 `json:"rating"`
	MetacriticScore int     `json:"metacritic_score"`
	Playtime        int     `json:"playtime"`
	Platforms       List    `json:"platforms"`
	Genres          List    `json:"genres"`
	Stores          List    `json:"stores"`
	ESRBRating      string  `json:"esrb_rating"`
	Description     string  `json:"description"`
	Screenshots     List    `json:"screenshots"`
}

// ReleaseDate parses Released; ok is false when absent or unparseable.
func (g Game) ReleaseDate() (time.Time, bool) {
	if g.Released == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, g.Released)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MetacriticTier buckets a score.
func MetacriticTier(score int) string {
	switch {
	case score >= 85:
		return TierExcellent
	case score >= 70:
		return TierGood
	case score >= 50:
		return TierAverage
	default:
		return TierPoor
	}
}

type gameListRequest struct {
	Search       string `json:"search"`
	Genres       string `json:"genres"`
	Platforms    string `json:"platforms"`
	Page         int    `json:"page"`
	ItemsPerPage int    `json:"items_per_page"`
}

type gameListResponse struct {
	Games       []Game `json:"games"`
	TotalPages  int    `json:"total_pages"`
	TotalItems  int    `json:"total_items"`
	CurrentPage int    `json:"current_page"`
}

// ListGames runs a catalog search.
func (c *Client) ListGames(ctx context.Context, q query.Query) (paging.Page[Game], error) {
	q = q.Normalized()
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   gamesPath,
		JSON: gameListRequest{
			Search:       q.Search,
			Genres:       q.Genre,
			Platforms:    q.Platform,
			Page:         q.Page,
			ItemsPerPage: q.PageSize,
		},
	})
	if err != nil {
		return paging.Page[Game]{}, fmt.Errorf("listing games: %w", err)
	}
	if err := resp.Err(msgGamesFailed); err != nil {
		return paging.Page[Game]{}, err
	}

	var body gameListResponse
	if err := resp.Decode(&body); err != nil {
		return paging.Page[Game]{}, fmt.Errorf("listing games: %w", err)
	}

	current := body.CurrentPage
	if current < 1 {
		current = q.Page
	}
	return paging.Page[Game]{
		Items:       body.Games,
		CurrentPage: current,
		TotalPages:  body.TotalPages,
		TotalCount:  body.TotalItems,
		PageSize:    q.PageSize,
	}, nil
}

// Game fetches one game.
func (c *Client) Game(ctx context.Context, id int64) (Game, error) {
	path, err := gameEndpoint.Path(map[string]any{"id": id})
	if err != nil {
		return Game{}, err
	}
	resp, err := c.api.Get(ctx, path, nil)
	if err != nil {
		return Game{}, fmt.Errorf("fetching game %d: %w", id, err)
	}
	if err := resp.Err(msgGameFailed); err != nil {
		return Game{}, err
	}

	var g Game
	if err := resp.Decode(&g); err != nil {
		return Game{}, fmt.Errorf("fetching game %d: %w", id, err)
	}
	return g, nil
}
