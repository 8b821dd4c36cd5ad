package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/api-fetch-client/internal/config"
	"github.com/Sternrassler/api-fetch-client/internal/output"
	"github.com/Sternrassler/api-fetch-client/internal/server"
	"github.com/Sternrassler/api-fetch-client/pkg/cache"
	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

// session is everything a fetching command needs: an open client, the
// optional Redis connection behind cache and stats, and the optional
// metrics server.
type session struct {
	client *client.Client
	redis  *redis.Client
	server *server.Server
	served chan error

	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// openSession builds the client described by cfg and opens it.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	rt := &session{
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logging.NewLogger(logging.ComponentCLI),
	}

	ccfg := cfg.ClientConfig()
	if cfg.NeedsRedis() {
		rdb, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		rt.redis = rdb
		if cfg.Cache.Enabled {
			ccfg.Cache = cache.NewManager(rdb)
		}
		if cfg.Stats.Enabled {
			ccfg.StatsRecorder = stats.NewRedisRecorder(rdb,
				stats.WithPrefix(cfg.Stats.Prefix),
				stats.WithTTL(cfg.Stats.TTL),
				stats.WithBucket(cfg.Stats.Bucket),
			)
		}
	}

	c, err := client.New(ccfg)
	if err != nil {
		rt.closeRedis()
		return nil, err
	}
	if err := c.Open(); err != nil {
		rt.closeRedis()
		return nil, err
	}
	rt.client = c

	if cfg.Server.MetricsAddr != "" {
		rt.startServer(cfg.Server.MetricsAddr)
	}
	return rt, nil
}

// connectRedis dials Redis and verifies the connection with a ping.
func connectRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(rc.Options())
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", rc.Addr, err)
	}
	return rdb, nil
}

func (rt *session) startServer(addr string) {
	checkers := map[string]server.HealthChecker{}
	if rt.redis != nil {
		rdb := rt.redis
		checkers["redis"] = server.HealthCheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	rt.server = server.New(addr, server.Options{
		Version:  versionInfo.Version,
		Stats:    rt.client,
		Checkers: checkers,
	})
	rt.served = make(chan error, 1)
	go func() {
		err := rt.server.Start()
		if err != nil {
			rt.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
		rt.served <- err
	}()
}

// Close stops the server, closes the client and the Redis connection.
func (rt *session) Close() error {
	var errs []error

	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout)
		if err := rt.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
		cancel()
		if err := <-rt.served; err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if rt.client != nil {
		if err := rt.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.closeRedis(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (rt *session) closeRedis() error {
	if rt.redis == nil {
		return nil
	}
	err := rt.redis.Close()
	rt.redis = nil
	return err
}

// printStats writes the client statistics to w.
func (rt *session) printStats(w io.Writer, f output.Formatter) {
	render := func() (string, error) { return f.FormatStats(rt.client.Stats(), rt.client.Pressure()) }
	if err := output.Write(w, render); err != nil {
		rt.logger.Warn().Err(err).Msg("Failed to print statistics")
	}
}
