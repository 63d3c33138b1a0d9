package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txn2/gamebuddy/internal/testbackend"
	"github.com/txn2/gamebuddy/pkg/apiclient"
	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	testUsername = "zelda"
	testPassword = "wisdom-42"
	testGameID   = int64(3)
)

type fixture struct {
	srv     *testbackend.Server
	mgr     *session.Manager
	backend *backend.Client
	userID  int64
}

// newFixture starts a fake backend with a small catalog and a manager that
// is already signed in.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := testbackend.New().Start()
	t.Cleanup(srv.Close)
	srv.SeedCatalog(6)
	userID := srv.AddUser(testUsername, testPassword, "Zelda", "Hyrule")

	mgr := session.NewManager(session.NewMemoryStorage())
	require.NoError(t, mgr.Restore(context.Background()))
	require.NoError(t, mgr.Login(context.Background(),
		session.User{ID: userID, Username: testUsername}, srv.IssueToken(userID)))

	api, err := apiclient.New(apiclient.Config{BaseURL: srv.URL()}, mgr, mgr)
	require.NoError(t, err)
	client := backend.New(api)
	mgr.SetInvalidator(client)

	return &fixture{srv: srv, mgr: mgr, backend: client, userID: userID}
}
