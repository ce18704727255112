// Package session binds browser sessions to upstream connections.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/internal/store"
)

// ErrNoSession means the request carries no live session.
var ErrNoSession = errors.New("session not found or expired")

// Options configures a Manager.
type Options struct {
	TTL          time.Duration // idle timeout, refreshed on every use
	Secret       string        // signs the session cookie
	CookieName   string
	SecureCookie bool
}

// Manager creates, resolves and expires sessions.
type Manager struct {
	store  store.SessionStore
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a session manager on top of st
func NewManager(st store.SessionStore, opts Options, logger *zap.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 8 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = "workbench.sid"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: st, opts: opts, logger: logger, now: time.Now}
}

// Create starts a session for an authenticated upstream connection.
func (m *Manager) Create(ctx context.Context, user model.UserInfo, conn model.Connection) (*model.Session, error) {
	now := m.now()
	sess := &model.Session{
		ID:         uuid.New().String(),
		User:       user,
		Connection: conn,
		CreatedAt:  now,
		LastSeen:   now,
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("organization", user.OrganizationID))
	return sess, nil
}

// Lookup resolves a live session and extends its idle window.
func (m *Manager) Lookup(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}

	sess, err := m.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	now := m.now()
	if now.Sub(sess.LastSeen) > m.opts.TTL {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session", zap.String("session", id), zap.Error(err))
		}
		return nil, ErrNoSession
	}

	// Touch never resurrects a session deleted since the Get
	sess.LastSeen = now
	if err := m.store.Touch(ctx, sess); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return sess, nil
}

// Destroy ends a session. Unknown ids are not an error.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Count reports the number of stored sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Sweep removes sessions idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx, m.now().Add(-m.opts.TTL))
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.logger.Info("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// ------------------- Cookies -------------------

// SessionID returns the verified session id carried by r, if any.
func (m *Manager) SessionID(r *http.Request) string {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return ""
	}
	id, sig, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(m.sign(id))) {
		return ""
	}
	return id
}

// SetCookie writes the signed session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    id + "." + m.sign(id),
		Path:     "/",
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie from the client.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.SecureCookie,
	})
}

// CookieName is the name of the session cookie.
func (m *Manager) CookieName() string { return m.opts.CookieName }

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, []byte(m.opts.Secret))
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
