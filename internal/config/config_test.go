package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SESSION_SECRET", "WORKBENCH_SESSION_BACKEND",
		"WORKBENCH_SESSION_DSN", "WORKBENCH_LOG_LEVEL", "WORKBENCH_SERVER_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 10000, cfg.Query.DefaultRecordLimit)
	assert.Equal(t, 1000, cfg.Query.MaxFetchIterations)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Equal(t, 120*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace())

	initial, maxDelay := cfg.RetryDelays()
	assert.Equal(t, 1, cfg.Upstream.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, initial)
	assert.Equal(t, 5*time.Second, maxDelay)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "workbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  session_ttl: "2h"
query:
  default_record_limit: 0
sessions:
  backend: sqlite
  dsn: /tmp/sessions.db
`), 0644))

	t.Setenv("PORT", "7000")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("WORKBENCH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Server.SessionSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 0, cfg.Query.DefaultRecordLimit)
	assert.Equal(t, 1000, cfg.Query.MaxFetchIterations, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Sessions.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative record limit", func(c *Config) { c.Query.DefaultRecordLimit = -1 }, true},
		{"zero iterations", func(c *Config) { c.Query.MaxFetchIterations = 0 }, true},
		{"postgres without dsn", func(c *Config) { c.Sessions.Backend = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Sessions.Backend = "postgres"
			c.Sessions.DSN = "postgres://localhost/workbench"
		}, false},
		{"unknown backend", func(c *Config) { c.Sessions.Backend = "redis" }, true},
		{"negative retry attempts", func(c *Config) { c.Upstream.RetryAttempts = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginURL(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://login.salesforce.com", cfg.LoginURL("production", ""))
	assert.Equal(t, "https://test.salesforce.com", cfg.LoginURL("sandbox", ""))
	assert.Equal(t, "https://acme.my.salesforce.com", cfg.LoginURL("production", "acme"))
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "workbench.yaml")
	cfg := DefaultConfig()
	cfg.Server.AllowedOrigins = []string{"https://workbench.example.com"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDefaultConfig_SingleUpstreamAttempt(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	initial, maxDelay := cfg.RetryDelays()
	client := upstream.NewSalesforce(upstream.Options{
		Timeout: cfg.UpstreamTimeout(),
		Retry: upstream.RetryPolicy{
			MaxAttempts:  cfg.Upstream.RetryAttempts,
			InitialDelay: initial,
			MaxDelay:     maxDelay,
			Jitter:       true,
		},
	}, nil)

	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}
	_, err = client.Query(context.Background(), conn, "SELECT Id FROM Account")
	require.Error(t, err)
	assert.Equal(t, "HTTP_503", upstream.Code(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
