package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"soql-workbench/internal/api/handler"
	"soql-workbench/internal/metrics"
	"soql-workbench/internal/session"
	"soql-workbench/internal/store"
	"soql-workbench/internal/upstream/upstreamtest"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sessions := session.NewManager(store.NewMemorySessionStore(), session.Options{Secret: "test"}, nil)
	m := metrics.New()
	h := handler.New(handler.Deps{Sessions: sessions, Upstream: upstreamtest.NewFake(10, 10), Metrics: m})
	srv := NewServer("", NewServerHandler(h, m, nil, zap.NewNop()), sessions, 10*time.Millisecond, time.Second, zap.NewNop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	httpClient := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	base := "http://" + ln.Addr().String()

	resp, err := httpClient.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = httpClient.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "workbench_logins_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerHandler_CORS(t *testing.T) {
	sessions := session.NewManager(store.NewMemorySessionStore(), session.Options{Secret: "test"}, nil)
	m := metrics.New()
	h := handler.New(handler.Deps{Sessions: sessions, Upstream: upstreamtest.NewFake(10, 10), Metrics: m})
	srv := NewServerHandler(h, m, []string{"http://localhost:3000"}, zap.NewNop())

	req, _ := http.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req, _ = http.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
