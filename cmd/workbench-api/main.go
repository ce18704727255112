package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soql-workbench/internal/api"
	"soql-workbench/internal/api/handler"
	"soql-workbench/internal/config"
	"soql-workbench/internal/logging"
	"soql-workbench/internal/metrics"
	"soql-workbench/internal/pipeline"
	"soql-workbench/internal/session"
	"soql-workbench/internal/store"
	"soql-workbench/internal/upstream"
)

// @title SOQL Workbench API
// @version 1.0
// @description Query workbench for a CRM platform: login, paginated queries, object metadata, statistics and CSV export.
// @BasePath /api
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "workbench-api",
		Short:        "HTTP API of the SOQL workbench",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "workbench.yaml", "path to the config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	root.AddCommand(serveCmd)
	return root
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sessionStore, err := store.NewSessionStore(ctx, cfg.Sessions)
	if err != nil {
		return err
	}
	defer sessionStore.Close()
	logger.Info("session store ready", zap.String("backend", cfg.Sessions.Backend))

	sessions := session.NewManager(sessionStore, session.Options{
		TTL:          cfg.SessionTTL(),
		Secret:       cfg.Server.SessionSecret,
		CookieName:   cfg.Server.CookieName,
		SecureCookie: cfg.Server.SecureCookie,
	}, logger.Named("session"))

	retryInitial, retryMax := cfg.RetryDelays()
	client := upstream.NewSalesforce(upstream.Options{
		APIVersion:      cfg.Upstream.APIVersion,
		Timeout:         cfg.UpstreamTimeout(),
		ResolveLoginURL: cfg.LoginURL,
		Retry: upstream.RetryPolicy{
			MaxAttempts:  cfg.Upstream.RetryAttempts,
			InitialDelay: retryInitial,
			MaxDelay:     retryMax,
			Jitter:       true,
		},
	}, logger.Named("upstream"))

	m := metrics.New()
	m.RegisterSessionGauge(func() float64 {
		n, err := sessions.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	h := handler.New(handler.Deps{
		Sessions:           sessions,
		Upstream:           client,
		Fetcher:            pipeline.NewFetcher(client, logger.Named("fetch"), cfg.Query.MaxFetchIterations),
		Metrics:            m,
		Logger:             logger.Named("api"),
		DefaultRecordLimit: cfg.Query.DefaultRecordLimit,
	})

	srv := api.NewServer(
		cfg.Server.Addr,
		api.NewServerHandler(h, m, cfg.Server.AllowedOrigins, logger.Named("http")),
		sessions,
		cfg.SweepInterval(),
		cfg.ShutdownGrace(),
		logger,
	)
	return srv.Run(ctx)
}
