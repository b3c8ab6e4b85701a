package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/commandapi/internal/api"
	"github.com/harrylevesque/commandapi/internal/auth"
	"github.com/harrylevesque/commandapi/internal/models"
	"github.com/harrylevesque/commandapi/internal/storage/memstore"
)

func newServer(t *testing.T, authz auth.Authorizer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Store:      memstore.New(),
		Authorizer: authz,
		Logger:     zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)
	_, err = New("http://localhost:8080/")
	require.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	srv := newServer(t, nil)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := c.Create(ctx, models.Command{HowTo: "Disk usage", Platform: "linux", CommandLine: "du -sh ."})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	created.CommandLine = "du -sh *"
	require.NoError(t, c.Update(ctx, created))

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "du -sh *", got.CommandLine)

	found, err := c.Search(ctx, "disk")
	require.NoError(t, err)
	require.Len(t, found, 1)

	removed, err := c.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, got, removed)

	_, err = c.Get(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := newServer(t, nil)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Create(context.Background(), models.Command{Platform: "linux"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "INVALID_REQUEST", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAPIKeyHeader(t *testing.T) {
	hash, err := auth.HashAPIKey("dev-key")
	require.NoError(t, err)
	keys, err := auth.NewAPIKeyVerifier([]string{hash})
	require.NoError(t, err)
	srv := newServer(t, &auth.Verifier{APIKeys: keys})

	anon, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = anon.Create(context.Background(), models.Command{HowTo: "h", Platform: "p", CommandLine: "c"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	keyed, err := New(srv.URL, WithHTTPClient(srv.Client()), WithAPIKey("dev-key"))
	require.NoError(t, err)
	_, err = keyed.Create(context.Background(), models.Command{HowTo: "h", Platform: "p", CommandLine: "c"})
	require.NoError(t, err)
}

func TestPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	err = c.Health(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}
