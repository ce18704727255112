package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"soql-workbench/internal/session"
)

// Server runs the HTTP API next to the session sweeper.
type Server struct {
	http          *http.Server
	sessions      *session.Manager
	sweepInterval time.Duration
	grace         time.Duration
	logger        *zap.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h http.Handler, sessions *session.Manager, sweepInterval, grace time.Duration, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions:      sessions,
		sweepInterval: sweepInterval,
		grace:         grace,
		logger:        logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server started", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return s.sessions.RunSweeper(gctx, s.sweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		s.logger.Info("shutting down", zap.Duration("grace", s.grace))
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
