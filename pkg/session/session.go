// Package session holds the signed-in identity for the game buddy client.
// It defines the Storage interface for durable key/value persistence and the
// Manager that owns the in-memory session, its restore/login/logout
// lifecycle, and teardown when the backend rejects the token.
package session

import (
	"context"
	"errors"
	"strings"
)

// Storage keys. A session is persisted as exactly these two entries; one
// without the other is treated as signed out.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNoSession is returned by operations that require a signed-in user.
var ErrNoSession = errors.New("no active session")

// ErrEmptyToken is returned by Login when the token is blank.
var ErrEmptyToken = errors.New("token must not be empty")

// User is the identity returned by the accounts endpoints.
type User struct {
	ID           int64  `json:"id" yaml:"id"`
	Username     string `json:"username" yaml:"username"`
	FirstName    string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty" yaml:"profile_image,omitempty"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Session is a snapshot of the current authentication state.
type Session struct {
	// Token is the opaque bearer token. Empty when signed out.
	Token string

	// User is the signed-in identity. Nil when signed out.
	User *User
}

// Authenticated reports whether the snapshot carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Storage defines durable key/value persistence for session entries.
// Implementations must apply SetItems and RemoveItems atomically across all
// keys in a single call.
type Storage interface {
	// GetItems returns the stored values for keys. Missing keys are absent
	// from the result map.
	GetItems(ctx context.Context, keys ...string) (map[string]string, error)

	// SetItems stores all items or none of them.
	SetItems(ctx context.Context, items map[string]string) error

	// RemoveItems deletes keys. Missing keys are not an error.
	RemoveItems(ctx context.Context, keys ...string) error

	// Close releases resources.
	Close() error
}

// Invalidator revokes a token on the server.
type Invalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// Reason explains why the user is sent to the sign-in entry point.
type Reason int

// Navigation reasons.
const (
	ReasonLogout Reason = iota
	ReasonExpired
)

// String returns the reason as a lowercase word.
func (r Reason) String() string {
	if r == ReasonExpired {
		return "expired"
	}
	return "logout"
}

// Navigator moves the user to the unauthenticated entry point.
type Navigator interface {
	ToLogin(reason Reason)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Reason)

// ToLogin calls f(reason).
func (f NavigatorFunc) ToLogin(reason Reason) {
	f(reason)
}
