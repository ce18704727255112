// Package store holds the persistence seams of the workbench: the
// server-side session store and the client-side key-value store.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"soql-workbench/internal/config"
	"soql-workbench/internal/model"
)

// ErrNotFound is returned when a key or session does not exist.
var ErrNotFound = errors.New("not found")

// SessionStore keeps sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Put(ctx context.Context, s *model.Session) error
	// Touch overwrites an existing session and never creates one. It returns
	// ErrNotFound when the session is gone.
	Touch(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions last seen before idleBefore and reports how many.
	Sweep(ctx context.Context, idleBefore time.Time) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// KV is a small key-value store for client-local state.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewSessionStore opens the backing selected by configuration.
func NewSessionStore(ctx context.Context, cfg config.SessionsConfig) (SessionStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemorySessionStore(), nil
	case "sqlite":
		return OpenSQLiteSessionStore(ctx, cfg.DSN)
	case "postgres":
		return OpenPostgresSessionStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
