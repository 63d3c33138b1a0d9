package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txn2/gamebuddy/internal/testbackend"
	"github.com/txn2/gamebuddy/pkg/apiclient"
)

const (
	testUsername = "link"
	testPassword = "triforce123"
)

type tokenBox struct {
	mu  sync.Mutex
	tok string
}

func (b *tokenBox) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tok
}

func (b *tokenBox) set(tok string) {
	b.mu.Lock()
	b.tok = tok
	b.mu.Unlock()
}

type unauthCounter struct{ n atomic.Int32 }

func (u *unauthCounter) HandleUnauthorized(context.Context, string) { u.n.Add(1) }

type fixture struct {
	srv    *testbackend.Server
	client *Client
	tokens *tokenBox
	unauth *unauthCounter
	userID int64
}

// newFixture starts a fake backend with 12 games and a signed-in user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := testbackend.New().Start()
	t.Cleanup(srv.Close)
	srv.SeedCatalog(12)
	userID := srv.AddUser(testUsername, testPassword, "Link", "Hyrule")

	tokens := &tokenBox{tok: srv.IssueToken(userID)}
	unauth := &unauthCounter{}
	api, err := apiclient.New(apiclient.Config{BaseURL: srv.URL()}, tokens, unauth)
	require.NoError(t, err)

	return &fixture{srv: srv, client: New(api), tokens: tokens, unauth: unauth, userID: userID}
}
