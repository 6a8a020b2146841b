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

	"chat-archive-bot/internal/adapters/githubapi"
	"chat-archive-bot/internal/adapters/repo"
	"chat-archive-bot/internal/adapters/slackapi"
	"chat-archive-bot/internal/infra/cache"
	"chat-archive-bot/internal/infra/config"
	"chat-archive-bot/internal/infra/db"
	applog "chat-archive-bot/internal/infra/log"
	"chat-archive-bot/internal/infra/metrics"
	"chat-archive-bot/internal/infra/secrets"
	"chat-archive-bot/internal/usecase/report"
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
		logger.Fatal().Err(err).Msg("reporter: секреты не загружены")
	}
	if bundle.SlackBotToken == "" {
		logger.Fatal().Msg("reporter: не задан SLACK_BOT_TOKEN")
	}
	if cfg.GitHub.ReportOwner == "" || cfg.GitHub.ReportRepo == "" {
		logger.Fatal().Msg("reporter: не задан отслеживаемый репозиторий")
	}
	if cfg.Slack.ReportChannel == "" {
		logger.Fatal().Msg("reporter: не задан канал отчёта (SLACK_REPORT_CHANNEL)")
	}

	location, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Warn().Err(err).Str("tz", cfg.TZ).Msg("reporter: часовой пояс не распознан, используем UTC")
		location = time.UTC
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("reporter: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	tickGuard := cache.NewRedis(redisClient)

	tracker := githubapi.NewTracker(githubapi.NewClient(bundle.GitHubToken))
	snapshots := repo.NewPostgres(pool)
	notifier := slackapi.NewNotifier(bundle.SlackBotToken)

	service := report.NewService(tracker, snapshots, notifier, report.Config{
		Owner:       cfg.GitHub.ReportOwner,
		Repo:        cfg.GitHub.ReportRepo,
		ChannelID:   cfg.Slack.ReportChannel,
		SnapshotTTL: cfg.Report.SnapshotTTL,
		Location:    location,
	}, logger.With().Str("component", "report").Logger())

	logger.Info().Dur("interval", cfg.Report.Interval).Msg("reporter: запущен")

	ticker := time.NewTicker(cfg.Report.Interval)
	defer ticker.Stop()
	for {
		runTick(ctx, cfg, tickGuard, service, logger)
		select {
		case <-ctx.Done():
			logger.Info().Msg("reporter: остановлен")
			return
		case <-ticker.C:
		}
	}
}

// runTick выполняет один прогон отчёта под SetNX-замком окна расписания.
func runTick(ctx context.Context, cfg config.AppConfig, guard *cache.RedisCache, service *report.Service, logger zerolog.Logger) {
	window := time.Now().Truncate(cfg.Report.Interval).Unix()
	key := fmt.Sprintf("lock:reporter:%d", window)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Report.Interval)
	defer cancel()

	err := guard.Once(runCtx, key, cfg.Report.Interval, func() error {
		runID := uuid.NewString()
		if err := service.Run(runCtx); err != nil {
			logger.Error().Err(err).Str("run_id", runID).Msg("reporter: прогон завершился ошибкой")
			return err
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("reporter: тик не выполнен")
	}
}
