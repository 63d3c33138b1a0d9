package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	msgWishlistFailed       = "Failed to load wishlist."
	msgWishlistStatusFailed = "Failed to check wishlist status."
	msgWishlistAddFailed    = "Failed to add to wishlist."
	msgWishlistRemoveFailed = "Failed to remove from wishlist."
)

// WishlistEntry is one saved game.
type WishlistEntry struct {
	ID          int64     `json:"id"`
	Game        int64     `json:"game"`
	GameDetails Game      `json:"game_details"`
	CreatedAt   time.Time `json:"created_at"`
}

type wishlistStatusResponse struct {
	InWishlist *bool `json:"is_in_wishlist"`
	ID         int64 `json:"id"`
}

type wishlistAddRequest struct {
	GameID int64 `json:"game_id"`
}

// Wishlist lists the signed-in user's saved games.
func (c *Client) Wishlist(ctx context.Context) ([]WishlistEntry, error) {
	resp, err := c.api.Get(ctx, wishlistPath, nil)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}
	if err := resp.Err(msgWishlistFailed); err != nil {
		return nil, err
	}

	var entries []WishlistEntry
	if err := resp.Decode(&entries); err != nil {
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}
	return entries, nil
}

// InWishlist reports whether gameID is saved. A 404 means not saved.
func (c *Client) InWishlist(ctx context.Context, gameID int64) (bool, error) {
	path, err := wishlistStatusEndpoint.Path(map[string]any{"id": gameID})
	if err != nil {
		return false, err
	}
	resp, err := c.api.Get(ctx, path, nil)
	if err != nil {
		return false, fmt.Errorf("checking wishlist for game %d: %w", gameID, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := resp.Err(msgWishlistStatusFailed); err != nil {
		return false, err
	}

	var body wishlistStatusResponse
	if err := resp.Decode(&body); err != nil {
		return false, fmt.Errorf("checking wishlist for game %d: %w", gameID, err)
	}
	if body.InWishlist != nil {
		return *body.InWishlist, nil
	}
	return body.ID != 0, nil
}

// AddToWishlist saves gameID. Adding an already saved game succeeds.
func (c *Client) AddToWishlist(ctx context.Context, gameID int64) error {
	resp, err := c.api.Post(ctx, wishlistPath, wishlistAddRequest{GameID: gameID})
	if err != nil {
		return fmt.Errorf("adding game %d to wishlist: %w", gameID, err)
	}
	return resp.Err(msgWishlistAddFailed)
}

// RemoveFromWishlist removes gameID.
func (c *Client) RemoveFromWishlist(ctx context.Context, gameID int64) error {
	path, err := wishlistStatusEndpoint.Path(map[string]any{"id": gameID})
	if err != nil {
		return err
	}
	resp, err := c.api.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("removing game %d from wishlist: %w", gameID, err)
	}
	return resp.Err(msgWishlistRemoveFailed)
}
