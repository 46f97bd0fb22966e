package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-request-service/internal/config"
	"github.com/iliyamo/leave-request-service/internal/database"
	"github.com/iliyamo/leave-request-service/internal/handler"
	"github.com/iliyamo/leave-request-service/internal/middleware"
	"github.com/iliyamo/leave-request-service/internal/queue"
	"github.com/iliyamo/leave-request-service/internal/repository"
	"github.com/iliyamo/leave-request-service/internal/router"
	"github.com/iliyamo/leave-request-service/internal/service"
	"github.com/iliyamo/leave-request-service/internal/utils"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	users := repository.NewUserRepo(db, cfg.DBDriver)
	requests := repository.NewLeaveRequestRepo(db)
	tokens := repository.NewTokenRepo(db)
	ledger := service.NewLedger(users, cfg.LeaveDefaultDays)

	// Redis is optional; without it the lock is in-process and there is
	// no cache or rate limiting.
	rdb := config.NewRedisClient()
	var locker service.Locker = service.NewKeyedLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = service.NewRedisLocker(rdb, "leave:lock", 10*time.Second)
		logger.Info("redis connected; using distributed requester lock")
	} else {
		logger.Warn("redis unavailable; cache and rate limiting disabled")
	}

	accounts := service.NewAccountService(db, users, ledger, utils.BcryptHasher{Cost: cfg.BcryptCost}, locker)

	var publisher service.EventPublisher = queue.NopPublisher{}
	if cfg.QueueEnabled {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
	}
	if cfg.QueueConsumerEnabled {
		consumer := queue.AuditConsumer{URL: cfg.RabbitMQURL, LogPath: cfg.AuditLogPath}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}
	leaves := service.NewLeaveService(db, users, requests, ledger, locker, publisher)

	if cfg.AdminPassword != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminFullName); err != nil {
			logger.Fatal("seed admin account", zap.Error(err))
		}
	}

	e := echo.New()
	router.Setup(e, cfg.CORSOrigins, rateLimiter(rdb))
	caching := cachingFor(rdb)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, tokens), cfg.JWTSecret, caching)
	router.RegisterLeave(e, handler.NewLeaveHandler(leaves), cfg.JWTSecret, caching)
	router.RegisterAdmin(e, handler.NewAdminHandler(accounts), cfg.JWTSecret, caching)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == database.DriverSQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func rateLimiter(rdb *redis.Client) echo.MiddlewareFunc {
	if rdb == nil {
		return nil
	}
	return middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
}

func cachingFor(rdb *redis.Client) router.Caching {
	if rdb == nil {
		return router.Caching{}
	}
	cc := config.LoadCacheConfig()
	return router.Caching{
		Cache:      middleware.NewRedisCache(cc, rdb),
		Invalidate: middleware.NewCacheInvalidator(cc, rdb),
	}
}
