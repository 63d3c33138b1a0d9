package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mgrTestToken    = "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"
	mgrTestUsername = "mango"
	mgrTestUserJSON = `{"id":3,"username":"mango","email":"m@example.com"}`
)

var errStorageDown = errors.New("storage down")

// failingStorage wraps MemoryStorage and fails selected operations.
type failingStorage struct {
	*MemoryStorage
	failGet, failSet, failRemove bool
}

func (s *failingStorage) GetItems(ctx context.Context, keys ...string) (map[string]string, error) {
	if s.failGet {
		return nil, errStorageDown
	}
	return s.MemoryStorage.GetItems(ctx, keys...)
}

func (s *failingStorage) SetItems(ctx context.Context, items map[string]string) error {
	if s.failSet {
		return errStorageDown
	}
	return s.MemoryStorage.SetItems(ctx, items)
}

func (s *failingStorage) RemoveItems(ctx context.Context, keys ...string) error {
	if s.failRemove {
		return errStorageDown
	}
	return s.MemoryStorage.RemoveItems(ctx, keys...)
}

type recordingNavigator struct {
	mu      sync.Mutex
	reasons []Reason
}

func (n *recordingNavigator) ToLogin(r Reason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, r)
}

func (n *recordingNavigator) got() []Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Reason(nil), n.reasons...)
}

type stubInvalidator struct {
	err    error
	tokens []string
}

func (s *stubInvalidator) Invalidate(_ context.Context, token string) error {
	s.tokens = append(s.tokens, token)
	return s.err
}

func seeded(t *testing.T, items map[string]string) *MemoryStorage {
	t.Helper()
	store := NewMemoryStorage()
	require.NoError(t, store.SetItems(context.Background(), items))
	return store
}

func TestManager_StartsLoading(t *testing.T) {
	m := NewManager(NewMemoryStorage())
	assert.Equal(t, StatusLoading, m.Status())
	assert.False(t, m.IsAuthenticated())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, m.Wait(ctx), "Wait must block until Restore runs")
}

func TestManager_Restore(t *testing.T) {
	tests := []struct {
		name       string
		items      map[string]string
		wantStatus Status
		wantKept   bool
	}{
		{
			name:       "both entries present",
			items:      map[string]string{KeyToken: mgrTestToken, KeyUser: mgrTestUserJSON},
			wantStatus: StatusAuthenticated,
			wantKept:   true,
		},
		{
			name:       "nothing stored",
			items:      map[string]string{},
			wantStatus: StatusUnauthenticated,
		},
		{
			name:       "token without user",
			items:      map[string]string{KeyToken: mgrTestToken},
			wantStatus: StatusUnauthenticated,
		},
		{
			name:       "user without token",
			items:      map[string]string{KeyUser: mgrTestUserJSON},
			wantStatus: StatusUnauthenticated,
		},
		{
			name:       "unreadable user",
			items:      map[string]string{KeyToken: mgrTestToken, KeyUser: "{not json"},
			wantStatus: StatusUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded(t, tt.items)
			m := NewManager(store)
			ctx := context.Background()

			require.NoError(t, m.Restore(ctx))
			require.NoError(t, m.Wait(ctx))
			assert.Equal(t, tt.wantStatus, m.Status())
			assert.Equal(t, tt.wantStatus == StatusAuthenticated, m.IsAuthenticated())

			left, err := store.GetItems(ctx, KeyToken, KeyUser)
			require.NoError(t, err)
			if tt.wantKept {
				assert.Len(t, left, 2)
				u, ok := m.User()
				require.True(t, ok)
				assert.Equal(t, mgrTestUsername, u.Username)
			} else {
				assert.Empty(t, left, "partial or invalid entries are removed")
			}
		})
	}
}

func TestManager_RestoreStorageError(t *testing.T) {
	m := NewManager(&failingStorage{MemoryStorage: NewMemoryStorage(), failGet: true})

	err := m.Restore(context.Background())
	require.ErrorIs(t, err, errStorageDown)
	assert.Equal(t, StatusUnauthenticated, m.Status())
	assert.NoError(t, m.Wait(context.Background()))
}

func TestManager_RestoreOnlyOnce(t *testing.T) {
	store := seeded(t, map[string]string{KeyToken: mgrTestToken, KeyUser: mgrTestUserJSON})
	m := NewManager(store)
	ctx := context.Background()

	require.NoError(t, m.Restore(ctx))
	require.NoError(t, store.RemoveItems(ctx, KeyToken, KeyUser))
	require.NoError(t, m.Restore(ctx))
	assert.True(t, m.IsAuthenticated())
}

func TestManager_RestoreExpiredJWT(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(-time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	fresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	clock := func() time.Time { return now }

	m := NewManager(seeded(t, map[string]string{KeyToken: expired, KeyUser: mgrTestUserJSON}), WithClock(clock))
	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, StatusUnauthenticated, m.Status())

	m = NewManager(seeded(t, map[string]string{KeyToken: fresh, KeyUser: mgrTestUserJSON}), WithClock(clock))
	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, StatusAuthenticated, m.Status())
}

func TestManager_Login(t *testing.T) {
	store := NewMemoryStorage()
	m := NewManager(store, WithNamespace("work"))
	ctx := context.Background()
	require.NoError(t, m.Restore(ctx))

	user := User{ID: 3, Username: mgrTestUsername, FirstName: "Indie", LastName: "Mango"}
	require.NoError(t, m.Login(ctx, user, mgrTestToken))

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, StatusAuthenticated, m.Status())
	assert.Equal(t, mgrTestToken, m.Token())
	assert.Equal(t, "Indie Mango", m.Current().User.DisplayName())

	got, err := store.GetItems(ctx, "work:"+KeyToken, "work:"+KeyUser)
	require.NoError(t, err)
	assert.Equal(t, mgrTestToken, got["work:"+KeyToken])
	assert.Contains(t, got["work:"+KeyUser], mgrTestUsername)
}

func TestManager_LoginStorageFailureChangesNothing(t *testing.T) {
	store := &failingStorage{MemoryStorage: NewMemoryStorage(), failSet: true}
	m := NewManager(store)
	ctx := context.Background()
	require.NoError(t, m.Restore(ctx))

	err := m.Login(ctx, User{Username: mgrTestUsername}, mgrTestToken)
	require.ErrorIs(t, err, errStorageDown)
	assert.False(t, m.IsAuthenticated())
	_, ok := m.User()
	assert.False(t, ok)

	left, err := store.MemoryStorage.GetItems(ctx, KeyToken, KeyUser)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestManager_LoginEmptyToken(t *testing.T) {
	m := NewManager(NewMemoryStorage())
	assert.ErrorIs(t, m.Login(context.Background(), User{}, ""), ErrEmptyToken)
}

func TestManager_Logout(t *testing.T) {
	tests := []struct {
		name   string
		invErr error
	}{
		{name: "server logout succeeds"},
		{name: "server logout fails", invErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStorage()
			nav := &recordingNavigator{}
			inv := &stubInvalidator{err: tt.invErr}
			m := NewManager(store, WithNavigator(nav))
			m.SetInvalidator(inv)
			ctx := context.Background()
			require.NoError(t, m.Restore(ctx))
			require.NoError(t, m.Login(ctx, User{Username: mgrTestUsername}, mgrTestToken))

			require.NoError(t, m.Logout(ctx))

			assert.Equal(t, []string{mgrTestToken}, inv.tokens)
			assert.False(t, m.IsAuthenticated())
			assert.Equal(t, StatusUnauthenticated, m.Status())
			assert.Equal(t, []Reason{ReasonLogout}, nav.got())

			left, err := store.GetItems(ctx, KeyToken, KeyUser)
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestManager_LogoutWhenSignedOutSkipsServer(t *testing.T) {
	inv := &stubInvalidator{}
	m := NewManager(NewMemoryStorage())
	m.SetInvalidator(inv)
	require.NoError(t, m.Restore(context.Background()))

	require.NoError(t, m.Logout(context.Background()))
	assert.Empty(t, inv.tokens)
}

func TestManager_HandleUnauthorizedIsIdempotent(t *testing.T) {
	nav := &recordingNavigator{}
	store := &failingStorage{MemoryStorage: NewMemoryStorage()}
	m := NewManager(store)
	m.SetNavigator(nav)
	ctx := context.Background()
	require.NoError(t, m.Restore(ctx))
	require.NoError(t, m.Login(ctx, User{Username: mgrTestUsername}, mgrTestToken))

	m.HandleUnauthorized(ctx, mgrTestToken)
	assert.False(t, m.IsAuthenticated())

	store.failRemove = true
	m.HandleUnauthorized(ctx, "")
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, []Reason{ReasonExpired, ReasonExpired}, nav.got())
}

func TestManager_HandleUnauthorizedIgnoresSupersededToken(t *testing.T) {
	tests := []struct {
		name     string
		rejected string
		wantAuth bool
		wantNav  []Reason
	}{
		{name: "token from before re-login", rejected: "old-token", wantAuth: true},
		{name: "request sent signed out", rejected: "", wantAuth: true},
		{name: "current token", rejected: "fresh-token", wantNav: []Reason{ReasonExpired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &recordingNavigator{}
			store := NewMemoryStorage()
			m := NewManager(store)
			ctx := context.Background()
			require.NoError(t, m.Restore(ctx))
			require.NoError(t, m.Login(ctx, User{Username: mgrTestUsername}, "old-token"))
			require.NoError(t, m.Logout(ctx))
			require.NoError(t, m.Login(ctx, User{Username: mgrTestUsername}, "fresh-token"))
			m.SetNavigator(nav)

			m.HandleUnauthorized(ctx, tt.rejected)

			assert.Equal(t, tt.wantAuth, m.IsAuthenticated())
			if tt.wantAuth {
				assert.Equal(t, "fresh-token", m.Token())
				items, err := store.GetItems(ctx, m.key(KeyToken))
				require.NoError(t, err)
				assert.Equal(t, "fresh-token", items[m.key(KeyToken)])
			}
			assert.Equal(t, tt.wantNav, nav.got())
		})
	}
}

func TestManager_UpdateUserAndReplaceToken(t *testing.T) {
	store := NewMemoryStorage()
	m := NewManager(store)
	ctx := context.Background()
	require.NoError(t, m.Restore(ctx))

	assert.ErrorIs(t, m.UpdateUser(ctx, User{}), ErrNoSession)
	assert.ErrorIs(t, m.ReplaceToken(ctx, "x"), ErrNoSession)

	require.NoError(t, m.Login(ctx, User{ID: 1, Username: mgrTestUsername}, mgrTestToken))
	require.NoError(t, m.UpdateUser(ctx, User{ID: 1, Username: mgrTestUsername, ProfileImage: "/media/a.png"}))
	require.NoError(t, m.ReplaceToken(ctx, "new-token"))

	u, ok := m.User()
	require.True(t, ok)
	assert.Equal(t, "/media/a.png", u.ProfileImage)
	assert.Equal(t, "new-token", m.Token())

	got, err := store.GetItems(ctx, KeyToken, KeyUser)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got[KeyToken])
	assert.Contains(t, got[KeyUser], "/media/a.png")
}

func TestManager_CurrentIsACopy(t *testing.T) {
	m := NewManager(NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, m.Restore(ctx))
	require.NoError(t, m.Login(ctx, User{Username: mgrTestUsername}, mgrTestToken))

	snap := m.Current()
	snap.User.Username = "changed"

	u, _ := m.User()
	assert.Equal(t, mgrTestUsername, u.Username)
}

func TestStatusAndReasonStrings(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "authenticated", StatusAuthenticated.String())
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
	assert.Equal(t, "logout", ReasonLogout.String())
	assert.Equal(t, "expired", ReasonExpired.String())
	assert.Equal(t, "solo", User{Username: "solo"}.DisplayName())
}

func TestTokenExpired_OpaqueToken(t *testing.T) {
	assert.False(t, tokenExpired(mgrTestToken, time.Now()))
	assert.False(t, tokenExpired("a.b.c", time.Now()))
}
