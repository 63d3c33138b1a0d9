package views

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/mutation"
	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	msgProfileFailed     = "Failed to load user information."
	msgProfileWishlistKO = "Failed to load wishlist."
)

// ProfileAPI is the backend surface used by the profile screen.
type ProfileAPI interface {
	mutation.WishlistAPI
	mutation.AccountAPI
	CurrentUser(ctx context.Context) (session.User, error)
	Wishlist(ctx context.Context) ([]backend.WishlistEntry, error)
}

// Profile is the signed-in user's screen: their details, avatar and
// wishlist.
type Profile struct {
	api      ProfileAPI
	accounts *mutation.Accounts

	mu       sync.Mutex
	user     Slot[session.User]
	wishlist Slot[[]backend.WishlistEntry]
}

// NewProfile creates the profile view. Confirmed account changes are written
// to sess.
func NewProfile(api ProfileAPI, sess mutation.SessionWriter) *Profile {
	return &Profile{api: api, accounts: mutation.NewAccounts(api, sess)}
}

// Load fetches the user and the wishlist concurrently.
func (p *Profile) Load(ctx context.Context) {
	p.mu.Lock()
	p.user = loadingSlot[session.User]()
	p.wishlist = loadingSlot[[]backend.WishlistEntry]()
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		u, err := p.api.CurrentUser(ctx)
		p.mu.Lock()
		p.user = settle(u, err, msgProfileFailed)
		p.mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		entries, err := p.api.Wishlist(ctx)
		p.mu.Lock()
		p.wishlist = settle(entries, err, msgProfileWishlistKO)
		p.mu.Unlock()
	}()
	wg.Wait()
}

// User returns the user slot.
func (p *Profile) User() Slot[session.User] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// Wishlist returns the wishlist slot.
func (p *Profile) Wishlist() Slot[[]backend.WishlistEntry] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wishlist
}

// RemoveFromWishlist removes gameID and drops it from the loaded list once
// the server confirms.
func (p *Profile) RemoveFromWishlist(ctx context.Context, gameID int64) mutation.Result {
	t := mutation.NewWishlistToggle(p.api, gameID)
	t.Set(true)
	r := t.Toggle(ctx)
	if !r.OK() {
		return r
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wishlist.Loaded() {
		p.wishlist.Value = slices.DeleteFunc(slices.Clone(p.wishlist.Value), func(e backend.WishlistEntry) bool {
			return e.Game == gameID
		})
	}
	return r
}

// SetAvatar uploads a new profile image.
func (p *Profile) SetAvatar(ctx context.Context, fileName string, content io.Reader) mutation.Result {
	r := p.accounts.SetAvatar(ctx, fileName, content)
	p.refreshUser(ctx, r)
	return r
}

// RemoveAvatar deletes the profile image.
func (p *Profile) RemoveAvatar(ctx context.Context) mutation.Result {
	r := p.accounts.RemoveAvatar(ctx)
	p.refreshUser(ctx, r)
	return r
}

// ChangePassword changes the password and keeps the session signed in with
// the reissued token.
func (p *Profile) ChangePassword(ctx context.Context, req backend.ChangePasswordRequest) mutation.Result {
	return p.accounts.ChangePassword(ctx, req)
}

func (p *Profile) refreshUser(ctx context.Context, r mutation.Result) {
	if !r.OK() {
		return
	}
	u, err := p.api.CurrentUser(ctx)
	p.mu.Lock()
	p.user = settle(u, err, msgProfileFailed)
	p.mu.Unlock()
}
