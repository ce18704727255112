package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soql-workbench/internal/model"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// flakyPlatform answers the first failures requests with status, then succeeds.
func flakyPlatform(t *testing.T, failures int32, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= failures {
			w.WriteHeader(status)
			io.WriteString(w, body)
			return
		}
		io.WriteString(w, `{"totalSize":1,"done":true,"records":[{"Id":"001A"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func retryClient(policy RetryPolicy) *Salesforce {
	return NewSalesforce(Options{APIVersion: "59.0", Timeout: 5 * time.Second, Retry: policy}, zap.NewNop())
}

func TestRetry_TransientStatus(t *testing.T) {
	srv, calls := flakyPlatform(t, 2, http.StatusServiceUnavailable, `[{"message":"try later","errorCode":"SERVER_UNAVAILABLE"}]`)
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	page, err := retryClient(fastRetry).Query(context.Background(), conn, "SELECT Id FROM Account")
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestRetry_GivesUpWithLastError(t *testing.T) {
	srv, calls := flakyPlatform(t, 10, http.StatusBadGateway, "")
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	_, err := retryClient(fastRetry).Query(context.Background(), conn, "SELECT Id FROM Account")
	require.Error(t, err)
	assert.Equal(t, "HTTP_502", Code(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestRetry_PermanentErrorsAreNotRetried(t *testing.T) {
	srv, calls := flakyPlatform(t, 10, http.StatusBadRequest, `[{"message":"unexpected token: FORM","errorCode":"MALFORMED_QUERY"}]`)
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	_, err := retryClient(fastRetry).Query(context.Background(), conn, "SELECT Id FORM Account")
	assert.EqualError(t, err, "MALFORMED_QUERY: unexpected token: FORM")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetry_OffByDefault(t *testing.T) {
	srv, calls := flakyPlatform(t, 10, http.StatusServiceUnavailable, "")
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	_, err := retryClient(RetryPolicy{}).Describe(context.Background(), conn, "Account")
	require.Error(t, err)
	assert.Equal(t, "HTTP_503", Code(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetry_TransportErrorUnwrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	_, err := retryClient(fastRetry).DescribeGlobal(context.Background(), conn)
	require.Error(t, err)
	var te *transientError
	assert.False(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "upstream request failed")
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	srv, calls := flakyPlatform(t, 10, http.StatusServiceUnavailable, "")
	conn := &model.Connection{AccessToken: "t", InstanceURL: srv.URL, APIVersion: "59.0"}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := retryClient(RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}).Query(ctx, conn, "SELECT Id FROM Account")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}.withDefaults()
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 400*time.Millisecond, p.delay(3))
	assert.Equal(t, time.Second, p.delay(10))

	p.Jitter = true
	for i := 0; i < 20; i++ {
		d := p.delay(2)
		assert.InDelta(t, float64(200*time.Millisecond), float64(d), float64(10*time.Millisecond))
	}

	defaults := RetryPolicy{}.withDefaults()
	assert.Equal(t, DefaultRetryPolicy.MaxAttempts, defaults.MaxAttempts)
	assert.Equal(t, DefaultRetryPolicy.InitialDelay, defaults.InitialDelay)
}
