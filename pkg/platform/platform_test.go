package platform

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/gamebuddy/internal/testbackend"
	"github.com/txn2/gamebuddy/pkg/query"
	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	platTestUser     = "kirby"
	platTestPassword = "warp-star"
)

type navRecorder struct {
	mu      sync.Mutex
	reasons []session.Reason
}

func (n *navRecorder) ToLogin(r session.Reason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, r)
}

func (n *navRecorder) got() []session.Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]session.Reason(nil), n.reasons...)
}

type closeCounter struct {
	*session.MemoryStorage
	closed int
	err    error
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.err
}

func newTestPlatform(t *testing.T, cfg *Config, opts ...Option) (*Platform, *testbackend.Server) {
	t.Helper()
	srv := testbackend.New().Start()
	t.Cleanup(srv.Close)
	srv.SeedCatalog(8)
	srv.AddUser(platTestUser, platTestPassword, "Kirby", "Dreamland")

	cfg.API.BaseURL = srv.URL()
	p, err := New(context.Background(), append([]Option{WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Start(context.Background()))
	return p, srv
}

func TestNew_RequiresValidConfig(t *testing.T) {
	_, err := New(context.Background())
	require.EqualError(t, err, "config is required")

	cfg := DefaultConfig()
	cfg.Session.Storage = "floppy"
	_, err = New(context.Background(), WithConfig(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation errors")
}

func TestPlatform_LoginPersistsAcrossRestarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.File.Path = filepath.Join(t.TempDir(), "session.yaml")

	p, srv := newTestPlatform(t, cfg)
	assert.Equal(t, session.StatusUnauthenticated, p.Session().Status())

	r := p.Accounts().Login(context.Background(), platTestUser, platTestPassword)
	require.True(t, r.OK(), r.Message)
	require.NoError(t, p.Close())

	again, err := New(context.Background(), WithConfig(cfg))
	require.NoError(t, err)
	defer func() { _ = again.Close() }()
	assert.Equal(t, session.StatusLoading, again.Session().Status())
	require.NoError(t, again.Start(context.Background()))
	assert.True(t, again.Session().IsAuthenticated())

	u, err := again.Backend().CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, platTestUser, u.Username)
	assert.Equal(t, 1, srv.CountCalls(http.MethodPost, "/accounts/login/"))
}

func TestPlatform_UnauthorizedNavigates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Storage = StorageMemory
	nav := &navRecorder{}
	p, srv := newTestPlatform(t, cfg, WithNavigator(nav))

	require.True(t, p.Accounts().Login(context.Background(), platTestUser, platTestPassword).OK())
	srv.RevokeTokens()

	_, err := p.Backend().Wishlist(context.Background())
	require.Error(t, err)
	assert.False(t, p.Session().IsAuthenticated())
	assert.Equal(t, []session.Reason{session.ReasonExpired}, nav.got())
}

func TestPlatform_LogoutInvalidatesServerToken(t *testing.T) {
	cfg := DefaultConfig()
	p, srv := newTestPlatform(t, cfg, WithStorage(session.NewMemoryStorage()))

	require.True(t, p.Accounts().Login(context.Background(), platTestUser, platTestPassword).OK())
	token := p.Session().Token()
	require.True(t, srv.TokenValid(token))

	require.NoError(t, p.Session().Logout(context.Background()))
	assert.False(t, srv.TokenValid(token))
	assert.False(t, p.Session().IsAuthenticated())
}

func TestPlatform_ViewsUseConfiguredSizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Storage = StorageMemory
	cfg.Catalog.PageSize = 3
	cfg.Reviews.PageSize = 2
	p, _ := newTestPlatform(t, cfg)

	c := p.Catalog(query.Query{})
	c.Start(context.Background())
	c.Wait()
	assert.Len(t, c.View().Page.Items, 3)
	assert.Equal(t, 3, c.Query().TotalPages())

	d := p.GameDetail(1)
	d.Load(context.Background())
	assert.True(t, d.Game().Loaded())
	assert.Equal(t, 2, d.Reviews().Page.PageSize)

	prof := p.Profile()
	require.NotNil(t, prof)
}

func TestPlatform_CloseOnce(t *testing.T) {
	storage := &closeCounter{MemoryStorage: session.NewMemoryStorage(), err: errors.New("flush failed")}
	cfg := DefaultConfig()
	p, err := New(context.Background(), WithConfig(cfg), WithStorage(storage))
	require.NoError(t, err)

	err = p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
	assert.Equal(t, err, p.Close())
	assert.Equal(t, 1, storage.closed)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Session.Storage = StorageMemory
	s, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStorage{}, s)

	cfg.Session.Storage = StorageFile
	cfg.Session.File.Path = filepath.Join(t.TempDir(), "s.yaml")
	s, err = OpenStorage(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &session.FileStorage{}, s)

	cfg.Session.Storage = StorageSQLite
	cfg.Session.Database.DSN = filepath.Join(t.TempDir(), "s.db")
	s, err = OpenStorage(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetItems(ctx, map[string]string{"k": "v"}))
	require.NoError(t, s.Close())

	cfg.Session.Storage = StorageRedis
	cfg.Session.Redis.Addr = "127.0.0.1:1"
	_, err = OpenStorage(ctx, cfg)
	require.Error(t, err)

	cfg.Session.Storage = "tape"
	_, err = OpenStorage(ctx, cfg)
	require.Error(t, err)
}
