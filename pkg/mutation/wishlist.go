package mutation

import (
	"context"
	"log/slog"
	"sync"
)

const (
	msgWishlistAdded   = "Game added to wishlist."
	msgWishlistRemoved = "Game removed from wishlist."
	msgWishlistFailed  = "Failed to update wishlist. Please try again."
	msgWishlistStatus  = "Failed to check wishlist status."
)

// WishlistAPI is the backend surface used by WishlistToggle.
type WishlistAPI interface {
	InWishlist(ctx context.Context, gameID int64) (bool, error)
	AddToWishlist(ctx context.Context, gameID int64) error
	RemoveFromWishlist(ctx context.Context, gameID int64) error
}

// WishlistToggle flips one game's wishlist membership. Membership changes
// only after the server confirms the write.
type WishlistToggle struct {
	api    WishlistAPI
	gameID int64

	mu     sync.Mutex
	known  bool
	member bool
	result Result
}

// NewWishlistToggle creates a toggle for gameID with unknown membership.
func NewWishlistToggle(api WishlistAPI, gameID int64) *WishlistToggle {
	return &WishlistToggle{api: api, gameID: gameID}
}

// GameID returns the game this toggle acts on.
func (w *WishlistToggle) GameID() int64 {
	return w.gameID
}

// Set records membership observed elsewhere, for example by a status fetch
// that ran alongside other page loads.
func (w *WishlistToggle) Set(member bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known = true
	w.member = member
}

// Refresh reads membership from the server.
func (w *WishlistToggle) Refresh(ctx context.Context) (bool, error) {
	member, err := w.api.InWishlist(ctx, w.gameID)
	if err != nil {
		return false, err
	}
	w.Set(member)
	return member, nil
}

// Member returns the last confirmed membership and whether it is known.
func (w *WishlistToggle) Member() (member, known bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.member, w.known
}

// Result returns the latest toggle outcome. StatusPending means a request is
// in flight.
func (w *WishlistToggle) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Toggle removes the game if it is saved and adds it otherwise. Unknown
// membership is read from the server first. On failure membership keeps its
// previous value.
func (w *WishlistToggle) Toggle(ctx context.Context) Result {
	w.mu.Lock()
	if w.result.Status == StatusPending {
		w.mu.Unlock()
		return failed(ErrBusy, msgWishlistFailed)
	}
	w.result = pending()
	known, member := w.known, w.member
	w.mu.Unlock()

	if !known {
		var err error
		member, err = w.api.InWishlist(ctx, w.gameID)
		if err != nil {
			return w.finish(failed(err, msgWishlistStatus), false, false)
		}
		w.Set(member)
	}

	if member {
		if err := w.api.RemoveFromWishlist(ctx, w.gameID); err != nil {
			slog.Debug("wishlist remove failed", "game_id", w.gameID, slogKeyError, err)
			return w.finish(failed(err, msgWishlistFailed), false, false)
		}
		return w.finish(succeeded(msgWishlistRemoved), true, false)
	}

	if err := w.api.AddToWishlist(ctx, w.gameID); err != nil {
		slog.Debug("wishlist add failed", "game_id", w.gameID, slogKeyError, err)
		return w.finish(failed(err, msgWishlistFailed), false, false)
	}
	return w.finish(succeeded(msgWishlistAdded), true, true)
}

func (w *WishlistToggle) finish(r Result, apply, member bool) Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	if apply {
		w.known = true
		w.member = member
	}
	w.result = r
	return r
}
