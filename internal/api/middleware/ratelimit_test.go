package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// The refill rate is near zero so the burst is the whole budget within
// a test run.
func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	h := NewRateLimiter(0.0001, 3).Limit(okHandler())

	for i := 0; i < 3; i++ {
		rec := doFrom(t, h, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	h := NewRateLimiter(0.0001, 2).Limit(okHandler())

	require.Equal(t, http.StatusOK, doFrom(t, h, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusOK, doFrom(t, h, "10.0.0.1:1234").Code)

	rec := doFrom(t, h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_BucketsAreIndependentPerIP(t *testing.T) {
	h := NewRateLimiter(0.0001, 1).Limit(okHandler())

	require.Equal(t, http.StatusOK, doFrom(t, h, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, doFrom(t, h, "10.0.0.1:1234").Code)

	assert.Equal(t, http.StatusOK, doFrom(t, h, "10.0.0.2:1234").Code)
}

func TestRateLimiter_PortDoesNotSplitTheBucket(t *testing.T) {
	h := NewRateLimiter(0.0001, 1).Limit(okHandler())

	require.Equal(t, http.StatusOK, doFrom(t, h, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(t, h, "10.0.0.1:2000").Code)
}
