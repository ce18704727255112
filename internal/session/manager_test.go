package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *store.MemorySessionStore, *clock) {
	t.Helper()
	st := store.NewMemorySessionStore()
	m := NewManager(st, Options{TTL: time.Hour, Secret: "test-secret"}, zap.NewNop())
	c := &clock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	m.now = c.Now
	return m, st, c
}

var (
	testUser = model.UserInfo{ID: "005A", OrganizationID: "00DA", URL: "https://login.example.com/id/00DA/005A"}
	testConn = model.Connection{AccessToken: "tok", InstanceURL: "https://na1.example.com", APIVersion: "59.0"}
)

func TestManager_CreateAndLookup(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)
	assert.Len(t, sess.ID, 36)

	got, err := m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, testUser, got.User)
	assert.Equal(t, testConn, got.Connection)

	_, err = m.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RollingExpiry(t *testing.T) {
	m, st, c := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)

	// every use pushes the idle deadline out
	for i := 0; i < 3; i++ {
		c.Advance(50 * time.Minute)
		_, err := m.Lookup(ctx, sess.ID)
		require.NoError(t, err, "lookup %d", i)
	}

	c.Advance(61 * time.Minute)
	_, err = m.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoSession)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expired sessions are deleted on lookup")
}

func TestManager_Destroy(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)
	require.NoError(t, m.Destroy(ctx, sess.ID))
	require.NoError(t, m.Destroy(ctx, sess.ID))
	require.NoError(t, m.Destroy(ctx, ""))

	_, err = m.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Sweep(t *testing.T) {
	m, _, c := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)
	c.Advance(30 * time.Minute)
	fresh, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)
	c.Advance(45 * time.Minute)

	removed, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = m.Lookup(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestManager_RunSweeperStopsOnCancel(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestManager_Cookies(t *testing.T) {
	m, _, _ := newTestManager(t)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, "abc")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "workbench.sid", c.Name)
	assert.True(t, strings.HasPrefix(c.Value, "abc."))
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	assert.Equal(t, "abc", m.SessionID(req))

	t.Run("tampered id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "workbench.sid", Value: "xyz" + strings.TrimPrefix(c.Value, "abc")})
		assert.Empty(t, m.SessionID(req))
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewManager(store.NewMemorySessionStore(), Options{Secret: "other"}, nil)
		assert.Empty(t, other.SessionID(req))
	})

	t.Run("unsigned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "workbench.sid", Value: "abc"})
		assert.Empty(t, m.SessionID(req))
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.ClearCookie(rec)
		cleared := rec.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Equal(t, -1, cleared[0].MaxAge)
	})
}

// destroyingStore deletes every session right after reading it, the way a
// concurrent logout can land between Lookup's read and write.
type destroyingStore struct {
	*store.MemorySessionStore
}

func (d destroyingStore) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := d.MemorySessionStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.MemorySessionStore.Delete(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

func TestManager_LookupDoesNotResurrectDestroyedSession(t *testing.T) {
	mem := store.NewMemorySessionStore()
	m := NewManager(destroyingStore{mem}, Options{TTL: time.Hour, Secret: "test-secret"}, zap.NewNop())
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser, testConn)
	require.NoError(t, err)

	_, err = m.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoSession)

	n, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
