package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/txn2/gamebuddy/pkg/apiclient"
	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/mutation"
	"github.com/txn2/gamebuddy/pkg/query"
	"github.com/txn2/gamebuddy/pkg/session"
	"github.com/txn2/gamebuddy/pkg/views"
)

// slogKeyError is the slog attribute key for error values.
const slogKeyError = "error"

// Platform is the wired client: session, API client and backend.
type Platform struct {
	config    *Config
	lifecycle *Lifecycle
	storage   session.Storage
	session   *session.Manager
	api       *apiclient.Client
	backend   *backend.Client

	closeOnce sync.Once
	closeErr  error
}

// New opens session storage, creates the session manager, and connects the
// API client to it. The session is not restored until Start.
func New(ctx context.Context, opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{config: options.Config, lifecycle: NewLifecycle()}

	storage := options.Storage
	if storage == nil {
		var err error
		if storage, err = OpenStorage(ctx, options.Config); err != nil {
			return nil, err
		}
	}

	p.storage = storage

	managerOpts := []session.ManagerOption{session.WithNamespace(options.Config.Session.Namespace)}
	if options.Navigator != nil {
		managerOpts = append(managerOpts, session.WithNavigator(options.Navigator))
	}
	p.session = session.NewManager(storage, managerOpts...)
	p.lifecycle.Adopt("session storage", func(context.Context) error {
		return p.session.Close()
	})

	api, err := apiclient.New(apiclient.Config{
		BaseURL:    options.Config.API.BaseURL,
		Timeout:    options.Config.API.Timeout,
		UserAgent:  options.Config.API.UserAgent,
		HTTPClient: options.HTTPClient,
	}, p.session, p.session)
	if err != nil {
		_ = p.lifecycle.Stop(ctx)
		return nil, fmt.Errorf("creating api client: %w", err)
	}
	p.api = api
	p.backend = backend.New(api)
	p.session.SetInvalidator(p.backend)

	p.lifecycle.Register("session restore", p.restore, nil)
	return p, nil
}

// Start restores the persisted session. A storage failure is logged and the
// session starts signed out.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

func (p *Platform) restore(ctx context.Context) error {
	if err := p.session.Restore(ctx); err != nil {
		slog.Warn("session restore failed, starting signed out", slogKeyError, err)
	}
	return nil
}

// Close stops every component. It is safe to call more than once.
func (p *Platform) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.lifecycle.Stop(context.Background())
	})
	return p.closeErr
}

// Config returns the configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Session returns the session manager.
func (p *Platform) Session() *session.Manager {
	return p.session
}

// SchemaStorage is session storage kept in a migrated SQL schema.
type SchemaStorage interface {
	SchemaVersion() (version uint, dirty bool, err error)
	ResetSchema() error
}

// Schema returns the session storage when it is SQL backed.
func (p *Platform) Schema() (SchemaStorage, bool) {
	s, ok := p.storage.(SchemaStorage)
	return s, ok
}

// API returns the low-level API client.
func (p *Platform) API() *apiclient.Client {
	return p.api
}

// Backend returns the typed REST client.
func (p *Platform) Backend() *backend.Client {
	return p.backend
}

// Accounts returns an account mutation coordinator bound to the session.
func (p *Platform) Accounts() *mutation.Accounts {
	return mutation.NewAccounts(p.backend, p.session)
}

// Catalog returns a new catalog view using the configured page size.
func (p *Platform) Catalog(initial query.Query) *views.Catalog {
	if initial.PageSize < 1 {
		initial.PageSize = p.config.Catalog.PageSize
	}
	return views.NewCatalog(p.backend, initial)
}

// GameDetail returns a new detail view for gameID.
func (p *Platform) GameDetail(gameID int64) *views.GameDetail {
	return views.NewGameDetail(p.backend, p.session, gameID, views.DetailOptions{
		ReviewPageSize: p.config.Reviews.PageSize,
		ReviewOrdering: p.config.Reviews.Ordering,
	})
}

// Profile returns a new profile view.
func (p *Platform) Profile() *views.Profile {
	return views.NewProfile(p.backend, p.session)
}
