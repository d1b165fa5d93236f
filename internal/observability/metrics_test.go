package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.MessageSent("http")
	a.MessageSent("ws")
	a.MessageSent("ws")

	assert.Equal(t, float64(2), testutil.ToFloat64(a.messagesSent.WithLabelValues("ws")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.messagesSent.WithLabelValues("ws")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(http.MethodGet, "/workout/:id", "200", 15*time.Millisecond)
	m.SessionStarted()
	m.SessionFinished("ok")
	m.EventPublished("session.started", errors.New("broker down"))
	m.SetSubscribers(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"gym_manager_http_requests_total",
		"gym_manager_progress_sessions_started_total",
		"gym_manager_progress_sessions_finished_total",
		"gym_manager_events_published_total",
		"gym_manager_realtime_subscribers 3",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
