package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"soql-workbench/internal/model"
)

// openSQLite opens (and creates the directory of) a sqlite database and
// runs the given schema statements.
func openSQLite(ctx context.Context, dbPath string, schema ...string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// ------------------- Sessions -------------------

const sessionTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_seen INTEGER NOT NULL
);
`

const sessionIndex = `CREATE INDEX IF NOT EXISTS sessions_last_seen ON sessions (last_seen);`

// SQLiteSessionStore keeps sessions in a sqlite file so they survive restarts.
// Timestamps are stored as unix nanoseconds for cheap range deletes.
type SQLiteSessionStore struct {
	db *sql.DB
}

// OpenSQLiteSessionStore opens the session database at dbPath
func OpenSQLiteSessionStore(ctx context.Context, dbPath string) (*SQLiteSessionStore, error) {
	db, err := openSQLite(ctx, dbPath, sessionTable, sessionIndex)
	if err != nil {
		return nil, fmt.Errorf("open sqlite session store: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SQLiteSessionStore) Put(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, created_at, last_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, last_seen = excluded.last_seen`,
		sess.ID, string(data), sess.CreatedAt.UnixNano(), sess.LastSeen.UnixNano())
	return err
}

func (s *SQLiteSessionStore) Touch(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET data = ?, last_seen = ? WHERE id = ?`,
		string(data), sess.LastSeen.UnixNano(), sess.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteSessionStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen < ?`, idleBefore.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteSessionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (s *SQLiteSessionStore) Close() error { return s.db.Close() }

// ------------------- Key-value -------------------

const kvTable = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at DATETIME
);
`

// SQLiteKV is the client-local key-value store.
type SQLiteKV struct {
	db *sql.DB
}

// OpenSQLiteKV opens the key-value database at dbPath
func OpenSQLiteKV(ctx context.Context, dbPath string) (*SQLiteKV, error) {
	db, err := openSQLite(ctx, dbPath, kvTable)
	if err != nil {
		return nil, fmt.Errorf("open sqlite kv: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *SQLiteKV) Save(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SQLiteKV) Close() error { return s.db.Close() }
