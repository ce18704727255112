package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soql-workbench/internal/client"
	"soql-workbench/internal/config"
	"soql-workbench/internal/logging"
	"soql-workbench/internal/pipeline"
	"soql-workbench/internal/store"
	"soql-workbench/internal/workspace"
)

// app holds everything a command needs. It is built in PersistentPreRunE.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	kv      store.KV
	api     *client.Client
	library *workspace.Library
	cache   *workspace.ResultCache
	prefs   *workspace.Preferences
	exports *pipeline.ExportManager
	out     io.Writer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	var (
		configPath string
		serverURL  string
		timeout    time.Duration
	)

	root := &cobra.Command{
		Use:           "workbench",
		Short:         "Query workbench for a CRM platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}
			return a.open(cmd.Context(), cfg, timeout)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(context.Background())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "workbench.yaml", "path to the config file")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "workbench API URL (overrides config)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "HTTP timeout for API calls, 0 waits indefinitely")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newRefreshCmd(a),
		newObjectsCmd(a),
		newDescribeCmd(a),
		newQueryCmd(a),
		newInspectCmd(a),
		newSavedCmd(a),
		newPrefsCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, cfg *config.Config, timeout time.Duration) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	kv, err := store.OpenSQLiteKV(ctx, cfg.Client.DataPath)
	if err != nil {
		return fmt.Errorf("open workspace %s: %w", cfg.Client.DataPath, err)
	}

	a.cfg = cfg
	a.logger = logger
	a.kv = kv
	a.api = client.New(cfg.Client.ServerURL, timeout)
	a.library = workspace.NewLibrary(kv)
	a.cache = workspace.NewResultCache(kv)
	a.prefs = workspace.NewPreferences(kv)
	a.exports = pipeline.NewExportManager(cfg.Client.ExportDir, logger.Named("export"))

	cookie, err := a.prefs.SessionCookie(ctx)
	if err != nil {
		return err
	}
	a.api.SetSessionCookie(cookie)
	return nil
}

// close persists the session cookie the server handed out and releases the workspace
func (a *app) close(ctx context.Context) error {
	if a.kv == nil {
		return nil
	}
	err := a.prefs.SetSessionCookie(ctx, a.api.SessionCookie())
	_ = a.logger.Sync()
	return errors.Join(err, a.kv.Close())
}

// apiError turns server errors into CLI guidance.
func apiError(err error) error {
	if client.IsUnauthenticated(err) {
		return fmt.Errorf("%w (run `workbench login`)", err)
	}
	return err
}
