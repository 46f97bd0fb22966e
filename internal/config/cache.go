package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// CacheConfig defines settings for the response cache middleware.
// Caching is off when Enabled is false or no Redis client is configured.
// Methods lists the HTTP methods to cache; any other method counts as a
// write and invalidates the cache.  KeyStrategy picks which parts of the
// request besides the user go into the key.
type CacheConfig struct {
	Enabled      bool            `env:"CACHE_ENABLED" envDefault:"true"`
	MethodList   []string        `env:"CACHE_METHODS" envSeparator:"," envDefault:"GET"`
	Methods      map[string]bool `env:"-"`
	TTL          time.Duration   `env:"CACHE_TTL" envDefault:"15s"`
	KeyStrategy  string          `env:"CACHE_KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string          `env:"CACHE_PREFIX" envDefault:"leave:cache"`
	MaxBodyBytes int             `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadCacheConfig reads CACHE_* variables.  A malformed value disables the
// cache rather than stopping the service.
func LoadCacheConfig() CacheConfig {
	var cfg CacheConfig
	if err := env.Parse(&cfg); err != nil {
		zap.L().Warn("cache config invalid; caching disabled", zap.Error(err))
		return CacheConfig{Enabled: false}
	}
	cfg.Methods = parseMethods(cfg.MethodList)
	return cfg
}

func parseMethods(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range list {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
