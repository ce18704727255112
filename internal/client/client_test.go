package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soql-workbench/internal/api"
	"soql-workbench/internal/api/handler"
	"soql-workbench/internal/metrics"
	"soql-workbench/internal/model"
	"soql-workbench/internal/session"
	"soql-workbench/internal/store"
	"soql-workbench/internal/upstream"
	"soql-workbench/internal/upstream/upstreamtest"
)

func newTestServer(t *testing.T) (*upstreamtest.Fake, *Client) {
	t.Helper()
	fake := upstreamtest.NewFake(100, 250)
	fake.Password = "secret"
	fake.Objects = []model.ObjectSummary{{Name: "Account", Label: "Account", Queryable: true}}
	fake.Describes = map[string]map[string]interface{}{"Account": {"name": "Account"}}

	sessions := session.NewManager(store.NewMemorySessionStore(), session.Options{TTL: time.Hour, Secret: "test"}, nil)
	m := metrics.New()
	h := handler.New(handler.Deps{
		Sessions:           sessions,
		Upstream:           fake,
		Metrics:            m,
		DefaultRecordLimit: 10000,
	})
	srv := httptest.NewServer(api.NewServerHandler(h, m, []string{"http://localhost:3000"}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return fake, New(srv.URL+"/", 5*time.Second)
}

func TestClient_SessionFlow(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	status, err := c.AuthStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)

	_, err = c.Objects(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))

	resp, err := c.Login(ctx, upstream.Credentials{Username: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, c.SessionCookie())

	status, err = c.AuthStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)

	refreshed, err := c.RefreshSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Session refreshed", refreshed.Message)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.SessionCookie())

	_, err = c.RefreshSession(ctx)
	assert.True(t, IsUnauthenticated(err))
}

func TestClient_RestoredCookie(t *testing.T) {
	fake, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Login(ctx, upstream.Credentials{Username: "ada@example.com", Password: "secret"})
	require.NoError(t, err)

	// a second process picks the saved cookie up
	other := New(c.baseURL, 0)
	other.SetSessionCookie(c.SessionCookie())
	objects, err := other.Objects(ctx)
	require.NoError(t, err)
	assert.Equal(t, fake.Objects, objects)
}

func TestClient_LoginFailure(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.Login(context.Background(), upstream.Credentials{Username: "ada@example.com", Password: "wrong"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid username or password. Please check your credentials.", apiErr.Message)
	assert.Empty(t, c.SessionCookie())
}

func TestClient_QueryAndMetadata(t *testing.T) {
	fake, c := newTestServer(t)
	ctx := context.Background()
	_, err := c.Login(ctx, upstream.Credentials{Username: "ada@example.com", Password: "secret"})
	require.NoError(t, err)

	rs, err := c.Query(ctx, "SELECT Id, Name FROM Account", nil)
	require.NoError(t, err)
	assert.Equal(t, 250, rs.FetchedCount)
	assert.Equal(t, []string{"Id", "Name"}, rs.Columns)
	assert.True(t, rs.Done)

	limit := 150
	rs, err = c.Query(ctx, "SELECT Id, Name FROM Account", &limit)
	require.NoError(t, err)
	assert.Len(t, rs.Records, 150)
	assert.Equal(t, 150, rs.RecordLimit)

	fake.QueryErr = &upstream.Error{Code: "MALFORMED_QUERY", Message: "unexpected token: FORM"}
	_, err = c.Query(ctx, "SELECT Id FORM Account", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "MALFORMED_QUERY: unexpected token: FORM", apiErr.Message)
	assert.False(t, IsUnauthenticated(err))

	describe, err := c.Describe(ctx, "Account")
	require.NoError(t, err)
	assert.Equal(t, "Account", describe["name"])
}

func TestClient_DataEndpoints(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	records := []model.Record{
		{"Id": "001A", "Name": "Acme, Inc."},
		{"Id": "001B", "Name": "Globex"},
	}

	stats, err := c.Statistics(ctx, records)
	require.NoError(t, err)
	require.Contains(t, stats, "Name")
	assert.Equal(t, model.FieldTypeString, stats["Name"].Type)

	csv, err := c.ExportCSV(ctx, records, []string{"Id", "Name"})
	require.NoError(t, err)
	assert.Equal(t, "Id,Name\n001A,Acme; Inc.\n001B,Globex", string(csv))
}

func TestDecodeError(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("upstream unreachable\n"))
	assert.EqualError(t, err, "upstream unreachable")

	err = decodeError(http.StatusNotFound, nil)
	assert.EqualError(t, err, "Not Found")

	err = decodeError(http.StatusUnauthorized, []byte(`{"success":false,"error":"Not authenticated"}`))
	assert.EqualError(t, err, "Not authenticated")
	assert.True(t, IsUnauthenticated(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).AuthStatus(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /api/auth-status")
}
