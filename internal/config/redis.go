package config

// This file defines the Redis client constructor.  Redis backs the rate
// limiter, the response cache and the cross-instance requester lock.  When
// it cannot be reached at startup the client is nil and callers fall back:
// no caching, no rate limiting, in-process locking.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds the REDIS_* variables.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
type RedisConfig struct {
	Enabled     bool   `env:"REDIS_ENABLED" envDefault:"true"`
	Addr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Host        string `env:"REDIS_HOST"`
	Port        string `env:"REDIS_PORT"`
	Password    string `env:"REDIS_PASSWORD"`
	DB          int    `env:"REDIS_DB" envDefault:"0"`
	TLS         bool   `env:"REDIS_TLS"`
	TLSInsecure bool   `env:"REDIS_TLS_INSECURE"`
}

// Address resolves the host:port to dial.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// Options converts the config into go-redis options.
func (c RedisConfig) Options() *redis.Options {
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: c.TLSInsecure}
	}
	return &redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	}
}

// NewRedisClient builds a client from the environment and pings it with a
// short timeout.  It returns nil when Redis is disabled, misconfigured or
// unreachable.
func NewRedisClient() *redis.Client {
	var cfg RedisConfig
	if err := env.Parse(&cfg); err != nil {
		zap.L().Warn("redis config invalid", zap.Error(err))
		return nil
	}
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(cfg.Options())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis ping failed", zap.String("addr", cfg.Address()), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
