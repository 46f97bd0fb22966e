package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/leave.db", cfg.SQLitePath)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 10, cfg.LeaveDefaultDays)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.False(t, cfg.QueueEnabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "leave")
	t.Setenv("DB_NAME", "leave")
	t.Setenv("LEAVE_DEFAULT_DAYS", "25")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 25, cfg.LeaveDefaultDays)
	assert.True(t, cfg.QueueEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestParseErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("DB_DRIVER", "sqlite")
		_, err := Parse()
		assert.Error(t, err)
	})
	t.Run("mysql without credentials", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("DB_USER", "")
		t.Setenv("DB_NAME", "")
		_, err := Parse()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_USER")
		assert.Contains(t, err.Error(), "DB_NAME")
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "postgres")
		_, err := Parse()
		assert.ErrorContains(t, err, "DB_DRIVER")
	})
	t.Run("bad default days", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("LEAVE_DEFAULT_DAYS", "0")
		_, err := Parse()
		assert.ErrorContains(t, err, "LEAVE_DEFAULT_DAYS")
	})
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is at least five refill intervals")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 15*time.Second, cfg.TTL)
	assert.Equal(t, "leave:cache", cfg.Prefix)

	t.Setenv("CACHE_TTL", "bogus")
	assert.False(t, LoadCacheConfig().Enabled)
}

func TestRedisConfigAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.Address())
	assert.Equal(t, "cache:6380", RedisConfig{Addr: "x:1", Host: "cache", Port: "6380"}.Address())

	opts := RedisConfig{Addr: "r:6379", DB: 2, TLS: true}.Options()
	assert.Equal(t, "r:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	require.NotNil(t, opts.TLSConfig)
	assert.False(t, opts.TLSConfig.InsecureSkipVerify)
}

func TestNewRedisClientDisabled(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	assert.Nil(t, NewRedisClient())
}
