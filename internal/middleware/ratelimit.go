package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/config"
)

// bucketScript refills the bucket for the elapsed whole intervals, then
// tries to take one token.  Returns {allowed, tokens_left, retry_ms}.
var bucketScript = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local st = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens, ts = tonumber(st[1]), tonumber(st[2])
if tokens == nil or ts == nil then
  tokens, ts = cap, now
end
local n = math.floor(math.max(0, now - ts) / every)
if n > 0 then
  tokens = math.min(cap, tokens + n * step)
  ts = ts + n * every
end
local ok, wait = 0, 0
if tokens > 0 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every - (now - ts))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// bucketDecision is the outcome of one take from a bucket.
type bucketDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

func takeToken(ctx context.Context, rdb redis.Scripter, key string, cfg config.RateLimitConfig, now time.Time) (bucketDecision, error) {
	ttl := int64(cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	vals, err := bucketScript.Run(ctx, rdb, []string{key},
		now.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttl,
	).Int64Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	if len(vals) != 3 {
		return bucketDecision{}, redis.Nil
	}
	return bucketDecision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// retrySeconds rounds a wait up to whole seconds for the Retry-After header.
func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// NewTokenBucket limits requests per key with a Redis-backed token bucket.
// Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			d, err := takeToken(c.Request().Context(), rdb, key, cfg, time.Now())
			if err != nil {
				zap.L().Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			secs := retrySeconds(d.RetryAfter)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				zap.L().Info("rate limited", zap.String("key", key), zap.Duration("retry_after", d.RetryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the key parts named by the strategy, e.g. "ip_user" or
// "user_route".  Unknown strategies use ip, user and route together.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	use := map[string]bool{}
	for _, p := range strings.Split(strategy, "_") {
		use[p] = true
	}
	if !use["ip"] && !use["user"] && !use["route"] {
		use = map[string]bool{"ip": true, "user": true, "route": true}
	}

	parts := []string{cfg.Prefix}
	if use["ip"] {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		parts = append(parts, "ip", ip)
	}
	if use["user"] {
		parts = append(parts, "user", currentUserID(c))
	}
	if use["route"] {
		parts = append(parts, "route", c.Request().Method+" "+c.Path())
	}
	return strings.Join(parts, ":")
}
