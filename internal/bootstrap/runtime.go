// Package bootstrap wires process-level runtime shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"farmfeed/internal/cache"
	"farmfeed/internal/config"
	"farmfeed/internal/database"
	"farmfeed/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ServiceName string
	// Migrate forces a schema migration even in production.
	Migrate bool
	// SkipRedis leaves the Redis client nil.
	SkipRedis bool
}

// Runtime holds the connections a binary works with.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime loads configuration, sets up logging and tracing, connects to
// the database and, unless skipped, Redis. Redis may come back nil when
// unreachable; callers treat it as optional.
func InitRuntime(opts Options) (*Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return InitRuntimeWithConfig(cfg, opts)
}

// InitRuntimeWithConfig is InitRuntime for an already loaded configuration.
func InitRuntimeWithConfig(cfg *config.Config, opts Options) (*Runtime, error) {
	observability.Logger = observability.NewLogger(cfg.Env)

	shutdownTracing, err := observability.StartTracing(context.Background(), observability.Tracing{
		Service:  opts.ServiceName,
		Env:      cfg.Env,
		Exporter: cfg.TracingExporter,
		Endpoint: cfg.OTLPEndpoint,
		Ratio:    cfg.TracingSampler,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing setup failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if opts.Migrate && cfg.IsProduction() {
		if err := database.Migrate(db); err != nil {
			_ = shutdownTracing(context.Background())
			return nil, err
		}
	}

	rt := &Runtime{Config: cfg, DB: db, shutdownTracing: shutdownTracing}
	if !opts.SkipRedis {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}
	return rt, nil
}

// Close releases connections and flushes pending spans.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	if r.Redis != nil {
		if err := cache.Close(); err != nil {
			firstErr = err
		}
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
