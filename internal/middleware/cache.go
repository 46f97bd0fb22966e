package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/config"
)

const defaultCacheTTL = 30 * time.Second

// cachedResponse is what a cache entry holds.  Only the content type is
// replayed; every other header is produced per request.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"b"`
}

// bodyRecorder tees the response body into a buffer until it exceeds
// limit, after which the response is marked uncacheable.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the requesting user together with the parts of the
// request named by cfg.KeyStrategy.  The concrete URL path is used rather
// than the route pattern so /leave-requests/3 and /4 stay apart.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "route_query"
	}

	parts := []string{"user", currentUserID(c)}
	if strings.HasPrefix(strategy, "method_") {
		parts = append(parts, "method", r.Method)
	}
	parts = append(parts, "route", r.URL.Path)
	if strings.HasSuffix(strategy, "_query") {
		parts = append(parts, "q", r.URL.RawQuery)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves repeated reads from Redis.  Only 200 responses are
// stored.  It must run after JWTAuth so the key can include the user.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)

			if hit, ok := lookup(c.Request().Context(), rdb, key); ok {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(hit.Status, hit.ContentType, hit.Body)
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			entry, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			// The request context may already be done once the body is sent.
			if err := rdb.Set(context.WithoutCancel(c.Request().Context()), key, entry, ttl).Err(); err != nil {
				zap.L().Debug("cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

func lookup(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResponse{}, false
	}
	var hit cachedResponse
	if err := json.Unmarshal(raw, &hit); err != nil || hit.Status == 0 {
		return cachedResponse{}, false
	}
	return hit, true
}

// NewCacheInvalidator flushes the whole cache prefix after any successful
// write.  Keys are hashed per user and one write (a status change, a
// reset) can alter what several users see.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if cfg.Methods[strings.ToUpper(c.Request().Method)] || c.Response().Status >= http.StatusBadRequest {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
			defer cancel()
			n, err := invalidatePrefix(ctx, rdb, cfg.Prefix)
			if err != nil {
				zap.L().Warn("cache invalidation failed", zap.Error(err))
				return nil
			}
			zap.L().Debug("cache invalidated", zap.Int("keys", n))
			return nil
		}
	}
}

// invalidatePrefix unlinks every key under prefix in batches.
func invalidatePrefix(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	const batch = 200
	var (
		keys    []string
		removed int
	)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := rdb.Unlink(ctx, keys...).Err(); err != nil {
			return err
		}
		removed += len(keys)
		keys = keys[:0]
		return nil
	}

	it := rdb.Scan(ctx, 0, prefix+":*", batch).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
		if len(keys) == batch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}
