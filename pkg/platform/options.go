package platform

import (
	"net/http"

	"github.com/txn2/gamebuddy/pkg/session"
)

// Options configures the platform.
type Options struct {
	// Config is required.
	Config *Config

	// Storage overrides the session storage selected by Config.
	Storage session.Storage

	// HTTPClient overrides the client used for backend requests.
	HTTPClient *http.Client

	// Navigator is told when the user must sign in again.
	Navigator session.Navigator
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithStorage sets the session storage, bypassing Config.Session.
func WithStorage(s session.Storage) Option {
	return func(o *Options) {
		o.Storage = s
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

// WithNavigator sets the navigator.
func WithNavigator(nav session.Navigator) Option {
	return func(o *Options) {
		o.Navigator = nav
	}
}
