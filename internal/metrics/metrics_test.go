package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	m := New()

	m.EventHandled("indexed")
	m.EventHandled("indexed")
	m.EventHandled("skipped")
	m.IndexDispatched("text", nil)
	m.IndexDispatched("image", errors.New("boom"))
	m.SearchExecuted("chat", 3)
	m.ReplySent(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("indexed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("image", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("ok")))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var m *Registry

	assert.NotPanics(t, func() {
		m.EventHandled("indexed")
		m.IndexDispatched("text", nil)
		m.SearchExecuted("self", 0)
		m.ReplySent(nil)
		m.ObserveRequest("/health", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestRegistry_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/updates/{token}", http.MethodPost, http.StatusOK, 5*time.Millisecond)
	m.SearchExecuted("self", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tg_search_relay_http_requests_total")
	assert.Contains(t, string(body), `tg_search_relay_searches_total{scope="self"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
