package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soql-workbench/internal/model"
)

var postgresSessionDDL = []string{
	`CREATE TABLE IF NOT EXISTS workbench_sessions (
		id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		last_seen TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS workbench_sessions_last_seen ON workbench_sessions (last_seen)`,
}

// PostgresSessionStore shares sessions between several server instances.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresSessionStore connects to dsn and ensures the session table exists
func OpenPostgresSessionStore(ctx context.Context, dsn string) (*PostgresSessionStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres session store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range postgresSessionDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create session table: %w", err)
		}
	}
	return &PostgresSessionStore{pool: pool}, nil
}

func (p *PostgresSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM workbench_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (p *PostgresSessionStore) Put(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO workbench_sessions (id, data, created_at, last_seen) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, last_seen = EXCLUDED.last_seen`,
		sess.ID, data, sess.CreatedAt, sess.LastSeen)
	return err
}

func (p *PostgresSessionStore) Touch(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `UPDATE workbench_sessions SET data = $1, last_seen = $2 WHERE id = $3`,
		data, sess.LastSeen, sess.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM workbench_sessions WHERE id = $1`, id)
	return err
}

func (p *PostgresSessionStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM workbench_sessions WHERE last_seen < $1`, idleBefore)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresSessionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workbench_sessions`).Scan(&n)
	return n, err
}

func (p *PostgresSessionStore) Close() error {
	p.pool.Close()
	return nil
}
