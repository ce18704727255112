package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Logins.WithLabelValues("success").Inc()
	m.Queries.WithLabelValues("error").Add(2)
	m.RecordsFetched.Add(500)
	m.RegisterSessionGauge(func() float64 { return 3 })

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Queries.WithLabelValues("error")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.RecordsFetched))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `workbench_logins_total{result="success"} 1`)
	assert.Contains(t, text, "workbench_records_fetched_total 500")
	assert.Contains(t, text, "workbench_sessions 3")
	assert.False(t, strings.Contains(text, "go_goroutines"), "only workbench collectors are exposed")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestNew_ExportsZeroSeries(t *testing.T) {
	m := New()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	text := rec.Body.String()

	assert.Contains(t, text, `workbench_logins_total{result="success"} 0`)
	assert.Contains(t, text, `workbench_logins_total{result="failure"} 0`)
	assert.Contains(t, text, `workbench_queries_total{result="success"} 0`)
	assert.Contains(t, text, `workbench_queries_total{result="error"} 0`)
}
