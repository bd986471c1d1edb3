package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/timingle-admin/internal/config"
)

// Bucket names one token bucket and its shape.
type Bucket struct {
	Name           string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	// PerPrincipal keys the bucket by admin id as well as client IP.
	PerPrincipal bool
}

// LoginBucket throttles credential guessing: keyed by client IP only.
func LoginBucket(cfg config.RateLimitConfig) Bucket {
	return Bucket{Name: "login", Capacity: cfg.LoginCapacity, RefillTokens: 1, RefillInterval: cfg.LoginInterval}
}

// APIBucket limits authenticated traffic per admin and IP.
func APIBucket(cfg config.RateLimitConfig) Bucket {
	return Bucket{Name: "api", Capacity: cfg.Capacity, RefillTokens: cfg.RefillTokens, RefillInterval: cfg.RefillInterval, PerPrincipal: true}
}

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket returns a Redis-backed token bucket limiter. When rate
// limiting is disabled or Redis is unavailable it passes every request
// through, and a Redis error during a request fails open.
func NewTokenBucket(cfg config.RateLimitConfig, b Bucket, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg.Prefix, b, c)
			args := []any{
				time.Now().UnixMilli(),
				b.Capacity,
				b.RefillTokens,
				b.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
			if err != nil {
				c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
				return next(c)
			}
			arr, ok := vals.([]any)
			if !ok || len(arr) != 3 {
				c.Logger().Warnf("[ratelimit] unexpected script result for key=%s: %#v", key, vals)
				return next(c)
			}
			allowed := asInt64(arr[0]) == 1 || fmt.Sprint(arr[0]) == "1"
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(b.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				secs := retryAfterSeconds(retryMs)
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many requests, try again later"})
			}
			return next(c)
		}
	}
}

func retryAfterSeconds(ms int64) int {
	secs := int(math.Ceil(float64(ms) / 1000.0))
	if secs < 0 {
		return 0
	}
	return secs
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(prefix string, b Bucket, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{prefix, b.Name, "ip", ip}
	if b.PerPrincipal {
		parts = append(parts, "admin", principalID(c))
	}
	return strings.Join(parts, ":")
}
