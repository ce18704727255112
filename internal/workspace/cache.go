package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"soql-workbench/internal/model"
	"soql-workbench/internal/store"
)

const (
	resultsKey     = "currentQueryResults"
	preferencesKey = "loginPreferences"
	cookieKey      = "sessionCookie"
)

// CachedResults is the last result set a client fetched.
type CachedResults struct {
	Query        string         `json:"query"`
	Records      []model.Record `json:"data"`
	Columns      []string       `json:"columns"`
	TotalSize    int            `json:"totalSize"`
	FetchedCount int            `json:"fetchedCount"`
	CachedAt     time.Time      `json:"cachedAt"`
}

// ResultCache keeps the most recent result set.
type ResultCache struct {
	kv store.KV
}

func NewResultCache(kv store.KV) *ResultCache {
	return &ResultCache{kv: kv}
}

// Store replaces the cached result set.
func (c *ResultCache) Store(ctx context.Context, query string, rs *model.ResultSet) error {
	cached := CachedResults{
		Query:        query,
		Records:      rs.Records,
		Columns:      rs.Columns,
		TotalSize:    rs.TotalAvailable,
		FetchedCount: rs.FetchedCount,
		CachedAt:     time.Now().UTC(),
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return c.kv.Save(ctx, resultsKey, raw)
}

// Load returns the cached result set or store.ErrNotFound.
func (c *ResultCache) Load(ctx context.Context) (*CachedResults, error) {
	raw, err := c.kv.Load(ctx, resultsKey)
	if err != nil {
		return nil, err
	}
	var cached CachedResults
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached results: %w", err)
	}
	return &cached, nil
}

func (c *ResultCache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, resultsKey)
}

// Preferences keeps login defaults and the client's session cookie.
type Preferences struct {
	kv store.KV
}

func NewPreferences(kv store.KV) *Preferences {
	return &Preferences{kv: kv}
}

// Login returns the remembered login defaults; zero value when none.
func (p *Preferences) Login(ctx context.Context) (model.LoginPreferences, error) {
	var prefs model.LoginPreferences
	raw, err := p.kv.Load(ctx, preferencesKey)
	if errors.Is(err, store.ErrNotFound) {
		return prefs, nil
	}
	if err != nil {
		return prefs, err
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return prefs, fmt.Errorf("decode login preferences: %w", err)
	}
	return prefs, nil
}

// RememberLogin stores prefs when RememberMe is set and forgets them otherwise.
func (p *Preferences) RememberLogin(ctx context.Context, prefs model.LoginPreferences) error {
	if !prefs.RememberMe {
		return p.ClearLogin(ctx)
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return p.kv.Save(ctx, preferencesKey, raw)
}

func (p *Preferences) ClearLogin(ctx context.Context) error {
	return p.kv.Delete(ctx, preferencesKey)
}

// SessionCookie returns the stored session cookie value, "" when none.
func (p *Preferences) SessionCookie(ctx context.Context) (string, error) {
	raw, err := p.kv.Load(ctx, cookieKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return string(raw), err
}

// SetSessionCookie stores value; an empty value removes it.
func (p *Preferences) SetSessionCookie(ctx context.Context, value string) error {
	if value == "" {
		return p.kv.Delete(ctx, cookieKey)
	}
	return p.kv.Save(ctx, cookieKey, []byte(value))
}
