package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func send(h http.Handler, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	t.Run("untrusted peers cannot pick their bucket", func(t *testing.T) {
		h := limitedHandler(NewRateLimiter(rate.Every(time.Hour), 2, nil))

		codes := []int{}
		for i := 0; i < 3; i++ {
			codes = append(codes, send(h, "203.0.113.7:5000", "10.0.0."+strconv.Itoa(i)))
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("trusted proxy forwards the client address", func(t *testing.T) {
		rl := NewRateLimiter(rate.Every(time.Hour), 1, []string{"10.0.0.0/8", "192.0.2.1"})
		h := limitedHandler(rl)

		assert.Equal(t, http.StatusOK, send(h, "10.1.2.3:443", "198.51.100.1"))
		assert.Equal(t, http.StatusOK, send(h, "10.1.2.3:443", "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "192.0.2.1:443", "198.51.100.1, 10.9.9.9"))
		assert.Equal(t, http.StatusOK, send(h, "10.1.2.3:443", "198.51.100.1, 198.51.100.3"), "spoofed leftmost hop is ignored")
	})
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 10, nil)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now
	h := limitedHandler(rl)

	for i := 0; i < 50; i++ {
		send(h, "203.0.113."+strconv.Itoa(i)+":5000", "")
	}
	assert.Equal(t, 50, rl.size())

	now = now.Add(limiterIdleTTL + limiterSweepInterval)
	send(h, "198.51.100.9:5000", "")
	assert.Equal(t, 1, rl.size())
}
