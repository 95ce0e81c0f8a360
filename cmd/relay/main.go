package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/open-observatory/internal/adapter/api"
	"github.com/couchcryptid/open-observatory/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/open-observatory/internal/adapter/kafka"
	"github.com/couchcryptid/open-observatory/internal/adapter/redis"
	"github.com/couchcryptid/open-observatory/internal/adapter/sqlite"
	"github.com/couchcryptid/open-observatory/internal/config"
	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
	"github.com/couchcryptid/open-observatory/internal/relay"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := domain.ValidateAchievementTables(); err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIToken, metrics, logger)
	checks := httpadapter.Checks{}

	// Catalog cache (optional, REDIS_URL).
	var catalog relay.CatalogSource = client
	if cfg.RedisURL != "" {
		rdb, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		catalog = redis.NewCachedCatalog(rdb, client, cfg.CatalogCacheTTL, metrics, logger)
		checks["redis"] = redisChecker{rdb}
		logger.Info("catalog cache enabled", "ttl", cfg.CatalogCacheTTL)
	}

	submissions, err := sqlite.Open(cfg.SubmissionLogPath)
	if err != nil {
		return err
	}
	defer submissions.Close()
	checks["submission_log"] = submissions

	var publisher relay.ActivityPublisher
	if cfg.ActivityEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}()

	limiter := rate.NewLimiter(cfg.SubmitRate, cfg.SubmitBurst)
	loader := relay.NewLoader(submissions, client, limiter, publisher, metrics, logger)
	p := relay.New(reader, relay.NewTransformer(catalog, logger), loader, logger, metrics, cfg.BatchSize)
	checks["relay"] = p

	srv := httpadapter.NewServer(cfg.HTTPAddr, checks, submissions, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// redisChecker adapts *goredis.Client to a readiness check.
type redisChecker struct{ client *goredis.Client }

func (r redisChecker) CheckReadiness(ctx context.Context) error { return r.client.Ping(ctx).Err() }
