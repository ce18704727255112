// Package workspace is the client-local repository: saved queries, the
// last result set and login defaults, all kept in a store.KV.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"soql-workbench/internal/model"
	"soql-workbench/internal/store"
)

const savedQueriesKey = "savedQueries"

var (
	ErrNotFound      = errors.New("saved query not found")
	ErrDuplicateName = errors.New("a saved query with this name already exists")
	ErrInvalid       = errors.New("invalid saved query")
)

// Library manages saved queries.
type Library struct {
	kv  store.KV
	mu  sync.Mutex
	now func() time.Time
}

// NewLibrary creates a saved query library on top of kv
func NewLibrary(kv store.KV) *Library {
	return &Library{kv: kv, now: time.Now}
}

// QueryPatch lists the fields to change on a saved query. Nil fields are kept.
type QueryPatch struct {
	Name        *string
	Query       *string
	Description *string
	Export      *model.ExportConfig
	ClearExport bool
}

// List returns the saved queries in creation order.
func (l *Library) List(ctx context.Context) ([]model.SavedQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Get returns the saved query with the given id.
func (l *Library) Get(ctx context.Context, id int64) (*model.SavedQuery, error) {
	queries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range queries {
		if queries[i].ID == id {
			return &queries[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindByName looks a saved query up by name, ignoring case.
func (l *Library) FindByName(ctx context.Context, name string) (*model.SavedQuery, error) {
	queries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByName(queries, name, 0); i >= 0 {
		return &queries[i], nil
	}
	return nil, ErrNotFound
}

// Save stores a new query under a unique name.
func (l *Library) Save(ctx context.Context, name, query string, export *model.ExportConfig) (*model.SavedQuery, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalid)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	queries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if indexByName(queries, name, 0) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	now := l.now().UTC()
	saved := model.SavedQuery{
		ID:        nextID(queries, now),
		Name:      name,
		Query:     query,
		CreatedAt: now,
		Export:    export,
	}
	queries = append(queries, saved)
	if err := l.store(ctx, queries); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Update edits the saved query with the given id.
func (l *Library) Update(ctx context.Context, id int64, patch QueryPatch) (*model.SavedQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range queries {
		if queries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	return l.apply(ctx, queries, idx, patch)
}

// Replace overwrites the query text of the saved query called name,
// keeping its id and creation time.
func (l *Library) Replace(ctx context.Context, name, query string) (*model.SavedQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	queries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexByName(queries, name, 0)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return l.apply(ctx, queries, idx, QueryPatch{Query: &query})
}

// apply patches queries[idx] and stores the list. Callers hold l.mu.
func (l *Library) apply(ctx context.Context, queries []model.SavedQuery, idx int, patch QueryPatch) (*model.SavedQuery, error) {
	q := queries[idx]
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalid)
		}
		if indexByName(queries, name, q.ID) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		q.Name = name
	}
	if patch.Query != nil {
		if strings.TrimSpace(*patch.Query) == "" {
			return nil, fmt.Errorf("%w: query text is required", ErrInvalid)
		}
		q.Query = *patch.Query
	}
	if patch.Description != nil {
		q.Description = *patch.Description
	}
	if patch.ClearExport {
		q.Export = nil
	}
	if patch.Export != nil {
		q.Export = patch.Export
	}

	now := l.now().UTC()
	q.UpdatedAt = &now
	queries[idx] = q

	if err := l.store(ctx, queries); err != nil {
		return nil, err
	}
	return &q, nil
}

// Delete removes the saved query with the given id.
func (l *Library) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	queries, err := l.load(ctx)
	if err != nil {
		return err
	}
	kept := queries[:0]
	for _, q := range queries {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(queries) {
		return ErrNotFound
	}
	return l.store(ctx, kept)
}

func (l *Library) load(ctx context.Context) ([]model.SavedQuery, error) {
	raw, err := l.kv.Load(ctx, savedQueriesKey)
	if errors.Is(err, store.ErrNotFound) {
		return []model.SavedQuery{}, nil
	}
	if err != nil {
		return nil, err
	}

	var queries []model.SavedQuery
	if err := json.Unmarshal(raw, &queries); err != nil {
		return nil, fmt.Errorf("decode saved queries: %w", err)
	}
	sort.SliceStable(queries, func(i, j int) bool { return queries[i].ID < queries[j].ID })
	return queries, nil
}

func (l *Library) store(ctx context.Context, queries []model.SavedQuery) error {
	raw, err := json.Marshal(queries)
	if err != nil {
		return err
	}
	return l.kv.Save(ctx, savedQueriesKey, raw)
}

// indexByName finds name case-insensitively, skipping the query with id skip
func indexByName(queries []model.SavedQuery, name string, skip int64) int {
	name = strings.TrimSpace(name)
	for i, q := range queries {
		if q.ID != skip && strings.EqualFold(q.Name, name) {
			return i
		}
	}
	return -1
}

// nextID is the creation time in milliseconds, bumped past the largest id in use
func nextID(queries []model.SavedQuery, now time.Time) int64 {
	id := now.UnixMilli()
	for _, q := range queries {
		if q.ID >= id {
			id = q.ID + 1
		}
	}
	return id
}
