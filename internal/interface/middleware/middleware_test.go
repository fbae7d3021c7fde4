package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))

	const given = "4f9a1f4e-0c7b-4c55-9f5c-0f9f3c1d2e11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Body.String())
}

func TestRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "cloudflare wins", headers: map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, want: "1.1.1.1"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "3.3.3.3"}, want: "3.3.3.3"},
		{name: "left-most forwarded", headers: map[string]string{"X-Forwarded-For": "4.4.4.4, 10.0.0.1"}, want: "4.4.4.4"},
		{name: "invalid header falls back", headers: map[string]string{"X-Real-IP": "nope"}, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRateLimit_WithoutRedisPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, KeyByIP(), nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestAllowFuncs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	c.Set("real_ip", "10.1.2.3")

	assert.True(t, AllowPrivateIP()(c))
	assert.True(t, AllowPaths("/health")(c))
	assert.False(t, AllowPaths("/api")(c))
	assert.True(t, AnyAllow(AllowPaths("/api"), AllowPrivateIP())(c))

	c.Set("real_ip", "8.8.8.8")
	assert.False(t, AllowPrivateIP()(c))
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestWindowState_ResetSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, windowState{}.resetSeconds())
	assert.Equal(t, 1, windowState{reset: 10 * time.Millisecond}.resetSeconds())
	assert.Equal(t, 60, windowState{reset: time.Minute}.resetSeconds())
	assert.Equal(t, 61, windowState{reset: time.Minute + time.Millisecond}.resetSeconds())
}
