package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/pkg/response"
)

const MsgTooManyRequests = "Demasiadas solicitudes desde esta IP, por favor intenta de nuevo más tarde."

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits by client IP and route, so credential endpoints get their own budget.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString(CtxUserIDKey)
		if uid == "" {
			return "rl:user:anon:ip:" + ipFromCtx(c)
		}
		return "rl:user:" + uid
	}
}

// fixedWindowScript counts a hit and returns {count, ttl_ms}. The window starts
// on the first hit, so the counter and its expiry are created together.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type AllowFunc func(*gin.Context) bool // return true for bypass limit

type windowState struct {
	count int64
	reset time.Duration
}

func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (windowState, error) {
	vals, err := fixedWindowScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return windowState{}, err
	}
	if len(vals) != 2 {
		return windowState{}, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	st := windowState{count: vals[0]}
	if vals[1] > 0 {
		st.reset = time.Duration(vals[1]) * time.Millisecond
	}
	return st, nil
}

// resetSeconds rounds up so clients never retry before the window closes.
func (w windowState) resetSeconds() int {
	return int((w.reset + time.Second - 1) / time.Second)
}

// RateLimit is a fixed-window limiter backed by Redis. It sets the
// X-RateLimit-* headers, skips OPTIONS and anything allow admits, and fails
// open when Redis is missing or erroring.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc, logger logrus.FieldLogger) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := int64(max)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		key := keyFn(c)
		st, err := hit(c.Request.Context(), rdb, key, window)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("key", key).Warn("rate limit check failed")
			}
			c.Next()
			return
		}

		remaining := limit - st.count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(st.resetSeconds()))

		if st.count > limit {
			// https://datatracker.ietf.org/doc/html/rfc6585#section-4
			c.Header("Retry-After", strconv.Itoa(st.resetSeconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorBody{
				Error:   "Too Many Requests",
				Message: MsgTooManyRequests,
			})
			return
		}
		c.Next()
	}
}
