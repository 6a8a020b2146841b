package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chat-archive-bot/internal/adapters/buffer"
	"chat-archive-bot/internal/adapters/githubapi"
	"chat-archive-bot/internal/adapters/repo"
	"chat-archive-bot/internal/infra/cache"
	"chat-archive-bot/internal/infra/config"
	"chat-archive-bot/internal/infra/db"
	applog "chat-archive-bot/internal/infra/log"
	"chat-archive-bot/internal/infra/metrics"
	"chat-archive-bot/internal/infra/secrets"
	"chat-archive-bot/internal/usecase/archive"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	bundle, err := secrets.FromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("syncer: секреты не загружены")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("syncer: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	eventBuffer := buffer.NewRedisBuffer(redisClient, cfg.Buffer.TTL)
	routes := repo.NewPostgres(pool)
	writer := githubapi.NewArchive(githubapi.NewClient(bundle.GitHubToken))
	tickGuard := cache.NewRedis(redisClient)

	service := archive.NewService(eventBuffer, routes, writer, cfg.Buffer.PageSize, logger.With().Str("component", "archive").Logger())

	logger.Info().Dur("interval", cfg.Sync.Interval).Msg("syncer: запущен")

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()
	for {
		runTick(ctx, cfg, tickGuard, service, logger)
		select {
		case <-ctx.Done():
			logger.Info().Msg("syncer: остановлен")
			return
		case <-ticker.C:
		}
	}
}

// runTick выполняет один прогон под SetNX-замком: две реплики в одном окне
// расписания не запускают архиватор одновременно.
func runTick(ctx context.Context, cfg config.AppConfig, guard *cache.RedisCache, service *archive.Service, logger zerolog.Logger) {
	window := time.Now().Truncate(cfg.Sync.Interval).Unix()
	key := fmt.Sprintf("lock:syncer:%d", window)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Sync.Interval)
	defer cancel()

	err := guard.Once(runCtx, key, cfg.Sync.Interval, func() error {
		runID := uuid.NewString()
		report := service.Run(runCtx)
		logger.Info().
			Str("run_id", runID).
			Int("processed", report.Processed).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Msg("syncer: тик завершён")
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("syncer: тик не выполнен")
	}
}
