package views

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
	testUsername = "samus"
	testPassword = "varia-suit"
)

type fixture struct {
	srv     *testbackend.Server
	mgr     *session.Manager
	backend *backend.Client
	userID  int64
}

func newFixture(t *testing.T, games int) *fixture {
	t.Helper()
	srv := testbackend.New().Start()
	t.Cleanup(srv.Close)
	srv.SeedCatalog(games)
	userID := srv.AddUser(testUsername, testPassword, "Samus", "Aran")

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
