package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	assert.Equal(t, 3, rl.Remaining("a"))
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("a"))
	assert.Equal(t, 0, rl.Remaining("a"))

	// Keys are independent
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Remaining("b"))
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	defer rl.Close()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	assert.Eventually(t, func() bool { return rl.Allow("a") }, time.Second, 10*time.Millisecond)
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	router := gin.New()
	router.Use(RateLimit(rl))
	router.POST("/console/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/console/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.7:5000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send().Code)

	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"ERR_RATE_LIMITED"`)
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	router := gin.New()
	router.Use(RateLimitByKey(rl, func(c *gin.Context) string { return c.GetHeader("X-Key") }))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tt := range []struct {
		key  string
		want int
	}{
		{"one", http.StatusOK},
		{"two", http.StatusOK},
		{"one", http.StatusTooManyRequests},
	} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Key", tt.key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.key)
	}
}
