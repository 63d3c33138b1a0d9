// Package backend is the typed REST surface of the game discovery service:
// accounts, catalog, reviews and wishlist. Transport failures wrap
// apiclient.ErrTransport; error statuses come back as *apiclient.APIError
// carrying the server's message when it sent one.
package backend

import (
	"github.com/txn2/gamebuddy/pkg/apiclient"
)

// Endpoint paths.
const (
	loginPath          = "/accounts/login/"
	signupPath         = "/accounts/signup/"
	logoutPath         = "/accounts/logout/"
	currentUserPath    = "/accounts/current-user/"
	changePasswordPath = "/accounts/change-password/"
	profileImagePath   = "/accounts/update-profile-image/"
	gamesPath          = "/games/"
	reviewsPath        = "/reviews/"
	wishlistPath       = "/wishlist/"
)

// Templated endpoints.
var (
	gameEndpoint           = apiclient.MustEndpoint("/games/{id}/")
	gameReviewsEndpoint    = apiclient.MustEndpoint("/reviews/game/{id}/")
	myReviewEndpoint       = apiclient.MustEndpoint("/reviews/game/{id}/user/")
	reviewEndpoint         = apiclient.MustEndpoint("/reviews/{id}/")
	wishlistStatusEndpoint = apiclient.MustEndpoint("/wishlist/game/{id}/")
)

// Client wraps an apiclient.Client with typed calls.
type Client struct {
	api *apiclient.Client
}

// New creates a backend client.
func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// API returns the underlying HTTP client.
func (c *Client) API() *apiclient.Client {
	return c.api
}
