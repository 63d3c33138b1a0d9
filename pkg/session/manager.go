package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// slogKeyError is the slog attribute key for error values.
	slogKeyError = "error"

	// namespaceSep joins a namespace and a storage key.
	namespaceSep = ":"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNamespace prefixes every storage key with ns so several profiles can
// share one storage backend.
func WithNamespace(ns string) ManagerOption {
	return func(m *Manager) {
		m.namespace = ns
	}
}

// WithNavigator sets the navigator invoked on logout and on token rejection.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) {
		m.navigator = nav
	}
}

// WithClock overrides the time source used for JWT expiry checks.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the process-wide session. All mutation goes through Restore,
// Login, Logout, HandleUnauthorized, UpdateUser and ReplaceToken.
type Manager struct {
	storage   Storage
	namespace string
	now       func() time.Time

	status      statusCell
	restored    chan struct{}
	restoreOnce sync.Once

	mu      sync.RWMutex
	current Session

	hookMu      sync.RWMutex
	invalidator Invalidator
	navigator   Navigator
}

// NewManager creates a Manager in StatusLoading.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage:  storage,
		now:      time.Now,
		restored: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status.store(StatusLoading)
	return m
}

// SetInvalidator sets the server-side logout call. It is set after
// construction because the API client depends on the Manager for its token.
func (m *Manager) SetInvalidator(inv Invalidator) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.invalidator = inv
}

// SetNavigator replaces the navigator.
func (m *Manager) SetNavigator(nav Navigator) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.navigator = nav
}

// Restore loads the persisted session. Only the first call does any work;
// later calls return nil. Status leaves StatusLoading when Restore returns,
// whatever the outcome. A storage error is returned after the manager has
// settled in StatusUnauthenticated.
func (m *Manager) Restore(ctx context.Context) error {
	var err error
	m.restoreOnce.Do(func() {
		defer close(m.restored)
		err = m.restore(ctx)
	})
	return err
}

func (m *Manager) restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.storage.GetItems(ctx, m.key(KeyToken), m.key(KeyUser))
	if err != nil {
		m.setLocked(Session{})
		return fmt.Errorf("loading session: %w", err)
	}

	token, hasToken := items[m.key(KeyToken)]
	rawUser, hasUser := items[m.key(KeyUser)]

	if !hasToken && !hasUser {
		m.setLocked(Session{})
		return nil
	}

	var user User
	valid := hasToken && hasUser && token != ""
	if valid {
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			slog.Warn("session: stored user is unreadable", slogKeyError, err)
			valid = false
		}
	}
	if valid && tokenExpired(token, m.now()) {
		slog.Info("session: stored token has expired")
		valid = false
	}

	if !valid {
		m.setLocked(Session{})
		m.removeStored(ctx)
		return nil
	}

	m.setLocked(Session{Token: token, User: &user})
	slog.Debug("session: restored", "username", user.Username)
	return nil
}

// Wait blocks until Restore has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.restored:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session restore: %w", ctx.Err())
	}
}

// Login stores user and token durably, then in memory. If the storage write
// fails neither copy changes.
func (m *Manager) Login(ctx context.Context, user User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, user, token); err != nil {
		return err
	}
	m.setLocked(Session{Token: token, User: &user})
	return nil
}

// UpdateUser replaces the stored user of the active session, for example
// after a profile image change.
func (m *Manager) UpdateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Token == "" {
		return ErrNoSession
	}
	if err := m.persist(ctx, user, m.current.Token); err != nil {
		return err
	}
	m.current.User = &user
	return nil
}

// ReplaceToken swaps the token of the active session, for example after the
// backend reissues it on password change.
func (m *Manager) ReplaceToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.User == nil {
		return ErrNoSession
	}
	if err := m.persist(ctx, *m.current.User, token); err != nil {
		return err
	}
	m.current.Token = token
	return nil
}

// Logout revokes the token on the server, clears durable and in-memory state
// and navigates to the sign-in entry point. The server call is best-effort:
// its failure is logged and local state is cleared regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.hookMu.RLock()
	inv := m.invalidator
	m.hookMu.RUnlock()

	if token := m.Token(); token != "" && inv != nil {
		if err := inv.Invalidate(ctx, token); err != nil {
			slog.Warn("session: server logout failed, clearing locally", slogKeyError, err)
		}
	}

	m.clear(ctx)
	m.navigate(ReasonLogout)
	return nil
}

// HandleUnauthorized tears the session down after the backend rejected
// token. A rejection of a token the session no longer holds is ignored, so a
// late 401 from before a re-login leaves the new session alone. It is
// idempotent.
func (m *Manager) HandleUnauthorized(ctx context.Context, token string) {
	m.mu.Lock()
	if m.current.Token != token {
		m.mu.Unlock()
		slog.Debug("session: ignoring 401 for a superseded token")
		return
	}
	m.removeStored(ctx)
	m.setLocked(Session{})
	m.mu.Unlock()

	m.navigate(ReasonExpired)
}

// IsAuthenticated reports whether a token is present.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// Token returns the current bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

// User returns a copy of the signed-in user.
func (m *Manager) User() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current.User == nil {
		return User{}, false
	}
	return *m.current.User, true
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.current
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

// Status returns the manager state.
func (m *Manager) Status() Status {
	return m.status.load()
}

// Close releases the storage backend.
func (m *Manager) Close() error {
	if err := m.storage.Close(); err != nil {
		return fmt.Errorf("closing session storage: %w", err)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeStored(ctx)
	m.setLocked(Session{})
}

func (m *Manager) persist(ctx context.Context, user User, token string) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	err = m.storage.SetItems(ctx, map[string]string{
		m.key(KeyToken): token,
		m.key(KeyUser):  string(rawUser),
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (m *Manager) removeStored(ctx context.Context) {
	if err := m.storage.RemoveItems(ctx, m.key(KeyToken), m.key(KeyUser)); err != nil {
		slog.Warn("session: removing stored session failed", slogKeyError, err)
	}
}

// setLocked must be called with m.mu held.
func (m *Manager) setLocked(s Session) {
	m.current = s
	if s.Token != "" {
		m.status.store(StatusAuthenticated)
		return
	}
	m.status.store(StatusUnauthenticated)
}

func (m *Manager) navigate(reason Reason) {
	m.hookMu.RLock()
	nav := m.navigator
	m.hookMu.RUnlock()
	if nav != nil {
		nav.ToLogin(reason)
	}
}

func (m *Manager) key(k string) string {
	if m.namespace == "" {
		return k
	}
	return m.namespace + namespaceSep + k
}
