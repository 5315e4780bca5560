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

	"github.com/iliyamo/bus-seat-reservation/internal/config"
)

// bucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
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

    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals * refill_tokens)
        last_refill = last_refill + intervals * interval_ms
    end

    local allowed = 0
    local retry_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)
    return { allowed, tokens, retry_ms }
`)

// tokenBucket is a Redis-backed limiter shared by every server instance.
type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb redis.Scripter
	now func() time.Time
}

// NewTokenBucket returns a rate limiting middleware for cfg.  Holds and
// purchases use a per-holder write bucket, lookups a wider read bucket.
// The limiter fails open: if Redis is unreachable, requests pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return (&tokenBucket{cfg: cfg, rdb: rdb, now: time.Now}).middleware
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func (b *tokenBucket) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := rateKey(b.cfg, c)
		res, err := bucketScript.Run(c.Request().Context(), b.rdb, []string{key},
			b.now().UnixMilli(),
			b.cfg.Capacity,
			b.cfg.RefillTokens,
			b.cfg.RefillInterval.Milliseconds(),
			int64(b.cfg.TTL/time.Second),
		).Result()
		if err != nil {
			if b.cfg.Debug {
				c.Logger().Warnf("ratelimit: key=%s: %v", key, err)
			}
			return next(c)
		}
		allowed, remaining, retryMs, err := parseBucket(res)
		if err != nil {
			c.Logger().Warnf("ratelimit: key=%s: %v", key, err)
			return next(c)
		}

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(b.cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
		return next(c)
	}
}

func parseBucket(v interface{}) (allowed bool, remaining, retryMs int64, err error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected script result %#v", v)
	}
	return toInt64(arr[0]) == 1, toInt64(arr[1]), toInt64(arr[2]), nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

// rateKey composes "<prefix>:<component>:<value>..." according to the
// configured key strategy ("ip", "user", "route" or an underscore-joined
// combination such as "ip_user_route").
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	for _, comp := range strings.Split(strings.ToLower(cfg.KeyStrategy), "_") {
		switch comp {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", identity(c))
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	if len(parts) == 1 {
		parts = append(parts, "ip", c.RealIP(), "user", identity(c))
	}
	return strings.Join(parts, ":")
}
