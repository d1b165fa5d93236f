package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/gym-manager/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrWorkoutNotFound, http.StatusNotFound},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: name is required", service.ErrValidation), http.StatusBadRequest},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{service.ErrChatAccessDenied, http.StatusForbidden},
		{service.ErrMemberNotAssigned, http.StatusForbidden},
		{service.ErrAlreadySaved, http.StatusConflict},
		{service.ErrSessionNotInProgress, http.StatusConflict},
		{service.ErrFeatureDisabled, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.gym.test")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.gym.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/ping", "", nil)
	s.do(t, http.MethodGet, "/admin/members/whatever", "", nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `gym_manager_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, string(body), `route="/admin/members/:id",status="401"`)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	s := newTestServer(t, withRateLimit(0.001, 2))
	body := LoginRequest{Email: "nobody@gym.test", Password: "secret123"}

	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, http.MethodPost, "/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, resp := s.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", resp.Error)

	// Unlimited routes are untouched.
	rec, _ = s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(1, 1, log)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }

	rl.getLimiter("ip:10.0.0.1")
	now = start.Add(20 * time.Minute)
	rl.getLimiter("user:abc")
	require.Equal(t, 2, rl.Len())

	assert.Equal(t, 1, rl.Cleanup(10*time.Minute))
	assert.Equal(t, 1, rl.Len())
	assert.Equal(t, 0, rl.Cleanup(10*time.Minute))
}

func TestRateLimiterJanitorRejectsBadSpec(t *testing.T) {
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(1, 1, log)

	_, err := rl.StartJanitor("not a schedule", time.Minute)
	assert.Error(t, err)

	c, err := rl.StartJanitor("@every 1m", time.Minute)
	require.NoError(t, err)
	c.Stop()
}
