package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/flashteams/backend/pkg/response"
)

const rateLimitPrefix = "flashteams:rl:"

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true for requests that bypass the limit.
type AllowFunc func(*gin.Context) bool

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func route(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + clientIP(c) }
}

// KeyByIPAndPath gives every route its own bucket per client.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string { return "path:" + route(c) + ":ip:" + clientIP(c) }
}

// KeyByUserID limits authenticated callers by user id and anonymous ones by IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(CtxUserIDKey); uid != "" {
			return "user:" + uid
		}
		return "user:anon:ip:" + clientIP(c)
	}
}

// KeyByClaim limits by a token claim, so an account shares one bucket
// across every token issued for it. Emails are compared case-insensitively.
func KeyByClaim(name string) KeyFunc {
	return func(c *gin.Context) string {
		v, ok := ClaimsFrom(c).Get(name)
		if !ok || v == "" {
			return "claim:anon:ip:" + clientIP(c)
		}
		return "claim:" + name + ":" + strings.ToLower(v)
	}
}

// INCR and PTTL in one round trip; the window starts with the first hit.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// parseHit reads the script reply. A missing or negative ttl reads as zero.
func parseHit(v any) (count int, ttl time.Duration) {
	parts, ok := v.([]any)
	if !ok || len(parts) != 2 {
		return 0, 0
	}
	n, _ := parts[0].(int64)
	ms, _ := parts[1].(int64)
	if ms < 0 {
		ms = 0
	}
	return int(n), time.Duration(ms) * time.Millisecond
}

// RateLimit allows limit requests per window for each key. It is a no-op
// when rdb is nil and fails open when Redis errors.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		res, err := hitScript.Run(c.Request.Context(), rdb, []string{rateLimitPrefix + keyFn(c)}, window.Milliseconds()).Result()
		if err != nil {
			c.Next()
			return
		}
		count, ttl := parseHit(res)
		reset := int((ttl + time.Second - 1) / time.Second)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > limit {
			rateLimited.WithLabelValues(route(c)).Inc()
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
