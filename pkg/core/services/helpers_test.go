package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/clients/apiclient"
	"github.com/cticu/cticu-schedule/pkg/core/model"
	"github.com/cticu/cticu-schedule/pkg/core/session"
	"github.com/cticu/cticu-schedule/pkg/testutil/fakeapi"
)

var (
	doc1  = model.User{Username: "doc1", Name: "Dr One", Role: model.RoleUser, DoctorCode: "A1"}
	doc2  = model.User{Username: "doc2", Name: "Dr Two", Role: model.RoleUser, DoctorCode: "B1"}
	admin = model.User{Username: "boss", Name: "Chief", Role: model.RoleAdmin}
)

func newAPI(t *testing.T) *fakeapi.Server {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	for _, u := range []model.User{doc1, doc2, admin} {
		api.AddUser("secret", u)
	}
	return api
}

// signIn logs username in against api and starts a session for them
func signIn(t *testing.T, api *fakeapi.Server, username string) (*apiclient.Client, *session.Session) {
	t.Helper()
	client := apiclient.New(apiclient.Options{
		BaseURL: api.URL,
		Store:   apiclient.NewTokenStore(t.TempDir()),
		Logger:  zap.NewNop(),
	})
	ok, err := client.Login(context.Background(), username, "secret")
	require.NoError(t, err)
	require.True(t, ok)

	sess, err := session.Start(client, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(sess.Wait)
	return client, sess
}

func newFetcher(client cache.Getter) (*cache.Fetcher, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return cache.NewFetcher(store, client, nil, 0, zap.NewNop()), store
}
