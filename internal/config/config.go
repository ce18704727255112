package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"soql-workbench/pkg/utils"
)

// Config holds all workbench configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Query    QueryConfig    `yaml:"query"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Client   ClientConfig   `yaml:"client"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SessionTTL     string   `yaml:"session_ttl"`
	SweepInterval  string   `yaml:"sweep_interval"`
	CookieName     string   `yaml:"cookie_name"`
	SecureCookie   bool     `yaml:"secure_cookie"`
	SessionSecret  string   `yaml:"session_secret"`
	ShutdownGrace  string   `yaml:"shutdown_grace"`
}

// UpstreamConfig configures the upstream query API.
type UpstreamConfig struct {
	ProductionLoginURL string `yaml:"production_login_url"`
	SandboxLoginURL    string `yaml:"sandbox_login_url"`
	// CustomDomainURL is a format string receiving the custom domain
	CustomDomainURL string `yaml:"custom_domain_url"`
	APIVersion      string `yaml:"api_version"`
	Timeout         string `yaml:"timeout"`
	// Read calls are retried on throttling, gateway and transport failures
	// when RetryAttempts > 1. Off by default.
	RetryAttempts     int    `yaml:"retry_attempts"`
	RetryInitialDelay string `yaml:"retry_initial_delay"`
	RetryMaxDelay     string `yaml:"retry_max_delay"`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	DefaultRecordLimit int `yaml:"default_record_limit"` // 0 = unlimited
	MaxFetchIterations int `yaml:"max_fetch_iterations"`
}

// SessionsConfig selects the session store backing.
type SessionsConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite, postgres
	DSN     string `yaml:"dsn"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ClientConfig configures the CLI client.
type ClientConfig struct {
	ServerURL string `yaml:"server_url"`
	DataPath  string `yaml:"data_path"`
	ExportDir string `yaml:"export_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":5000",
			AllowedOrigins: []string{"http://localhost:3000"},
			SessionTTL:     "8h",
			SweepInterval:  "5m",
			CookieName:     "workbench.sid",
			SessionSecret:  "your-secret-key",
			ShutdownGrace:  "10s",
		},
		Upstream: UpstreamConfig{
			ProductionLoginURL: "https://login.salesforce.com",
			SandboxLoginURL:    "https://test.salesforce.com",
			CustomDomainURL:    "https://%s.my.salesforce.com",
			APIVersion:         "59.0",
			Timeout:            "120s",
			RetryAttempts:      1,
			RetryInitialDelay:  "500ms",
			RetryMaxDelay:      "5s",
		},
		Query: QueryConfig{
			DefaultRecordLimit: 10000,
			MaxFetchIterations: 1000,
		},
		Sessions: SessionsConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Client: ClientConfig{
			ServerURL: "http://localhost:5000",
			DataPath:  "data/workbench.db",
			ExportDir: "exports",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Query.DefaultRecordLimit < 0 {
		return fmt.Errorf("query.default_record_limit must be >= 0, got %d", c.Query.DefaultRecordLimit)
	}
	if c.Query.MaxFetchIterations <= 0 {
		return fmt.Errorf("query.max_fetch_iterations must be > 0, got %d", c.Query.MaxFetchIterations)
	}
	if c.Upstream.RetryAttempts < 0 {
		return fmt.Errorf("upstream.retry_attempts must be >= 0, got %d", c.Upstream.RetryAttempts)
	}
	switch strings.ToLower(c.Sessions.Backend) {
	case "memory":
	case "sqlite", "postgres":
		if c.Sessions.DSN == "" {
			return fmt.Errorf("sessions.dsn is required for backend %q", c.Sessions.Backend)
		}
	default:
		return fmt.Errorf("unknown sessions.backend %q", c.Sessions.Backend)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		c.Server.SessionSecret = secret
	}
	if backend := os.Getenv("WORKBENCH_SESSION_BACKEND"); backend != "" {
		c.Sessions.Backend = backend
	}
	if dsn := os.Getenv("WORKBENCH_SESSION_DSN"); dsn != "" {
		c.Sessions.DSN = dsn
	}
	if level := os.Getenv("WORKBENCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("WORKBENCH_SERVER_URL"); url != "" {
		c.Client.ServerURL = url
	}
}

// SessionTTL returns the idle session timeout.
func (c *Config) SessionTTL() time.Duration {
	return utils.ParseDuration(c.Server.SessionTTL, 8*time.Hour)
}

// SweepInterval returns how often idle sessions are purged.
func (c *Config) SweepInterval() time.Duration {
	return utils.ParseDuration(c.Server.SweepInterval, 5*time.Minute)
}

// ShutdownGrace returns the graceful shutdown window.
func (c *Config) ShutdownGrace() time.Duration {
	return utils.ParseDuration(c.Server.ShutdownGrace, 10*time.Second)
}

// UpstreamTimeout returns the per request upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return utils.ParseDuration(c.Upstream.Timeout, 120*time.Second)
}

// LoginURL picks the login endpoint for an environment or custom domain.
func (c *Config) LoginURL(environment, customDomain string) string {
	if customDomain != "" {
		return fmt.Sprintf(c.Upstream.CustomDomainURL, customDomain)
	}
	if environment == "sandbox" {
		return c.Upstream.SandboxLoginURL
	}
	return c.Upstream.ProductionLoginURL
}

// RetryDelays returns the initial and maximum backoff between upstream retries.
func (c *Config) RetryDelays() (initial, maxDelay time.Duration) {
	return utils.ParseDuration(c.Upstream.RetryInitialDelay, 500*time.Millisecond),
		utils.ParseDuration(c.Upstream.RetryMaxDelay, 5*time.Second)
}
