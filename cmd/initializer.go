package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"galleryBack/internal/config"
	"galleryBack/internal/delivery"
	"galleryBack/internal/limiter"
)

type application struct {
	errorLog     *log.Logger
	infoLog      *log.Logger
	deliveryDeps *delivery.DeliveryDeps
	rdb          *redis.Client
	limiter      limiter.Store
	retryAfter   int
}

// logAdapter exposes the two loggers through the Infof/Errorf interface used by internal packages.
type logAdapter struct {
	info *log.Logger
	err  *log.Logger
}

func (l logAdapter) Infof(format string, args ...interface{}) {
	l.info.Printf(format, args...)
}

func (l logAdapter) Errorf(format string, args ...interface{}) {
	l.err.Output(2, fmt.Sprintf(format, args...))
}

func initializeApp(ctx context.Context, cfg config.Config, deliveryCfg delivery.DeliveryConfig, errorLog, infoLog *log.Logger) (*application, error) {
	logger := logAdapter{info: infoLog, err: errorLog}

	deliveryDeps := &delivery.DeliveryDeps{
		Logger: logger,
		Config: deliveryCfg,
	}
	if err := deliveryDeps.Validate(); err != nil {
		return nil, err
	}

	app := &application{
		errorLog:     errorLog,
		infoLog:      infoLog,
		deliveryDeps: deliveryDeps,
		retryAfter:   1,
	}

	if cfg.Redis.Addr != "" {
		app.rdb = openRedis(ctx, cfg, infoLog, errorLog)
	}

	if cfg.RateLimitEnabled() {
		switch cfg.RateLimit.Backend {
		case config.BackendRedis:
			app.limiter = limiter.NewRedisStore(app.rdb, "delivery:ratelimit", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		default:
			store := limiter.NewMemoryStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			go store.StartCleanup(ctx, time.Minute, 3*time.Minute)
			app.limiter = store
		}
		infoLog.Printf("Rate limiting enabled: backend=%s rps=%.2f burst=%d", cfg.RateLimit.Backend, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	return app, nil
}

func openRedis(ctx context.Context, cfg config.Config, infoLog, errorLog *log.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		errorLog.Printf("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
	} else {
		infoLog.Printf("Successfully connected to redis at %s", cfg.Redis.Addr)
	}
	return rdb
}

func (app *application) logger() logAdapter {
	return logAdapter{info: app.infoLog, err: app.errorLog}
}

func (app *application) close() {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.errorLog.Printf("close redis: %v", err)
		}
	}
}
