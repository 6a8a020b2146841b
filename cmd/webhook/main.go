package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"chat-archive-bot/internal/adapters/buffer"
	"chat-archive-bot/internal/adapters/githubapi"
	"chat-archive-bot/internal/adapters/slackapi"
	"chat-archive-bot/internal/infra/config"
	httpinfra "chat-archive-bot/internal/infra/http"
	applog "chat-archive-bot/internal/infra/log"
	"chat-archive-bot/internal/infra/metrics"
	"chat-archive-bot/internal/infra/secrets"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bundle, err := secrets.FromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("webhook: секреты не загружены")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	eventBuffer := buffer.NewRedisBuffer(redisClient, cfg.Buffer.TTL)

	slackHandler := slackapi.NewHandler(eventBuffer, bundle.SlackSigningSecret, logger.With().Str("component", "slack").Logger())
	githubHandler := githubapi.NewWebhookHandler(bundle.GitHubWebhookSecret, logger.With().Str("component", "github").Logger())

	server := httpinfra.NewServer(logger)
	server.Router.Post("/slack/events", slackHandler.HandleEvents)
	server.Router.Post("/github/events", githubHandler.HandleEvents)

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("webhook: сервер остановился")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("webhook: ошибка остановки сервера")
	}
	logger.Info().Msg("webhook: остановлен")
}
