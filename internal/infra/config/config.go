package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"America/Chicago"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Slack struct {
		BotToken      string `envconfig:"SLACK_BOT_TOKEN"`
		SigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
		ReportChannel string `envconfig:"SLACK_REPORT_CHANNEL"`
	} `envconfig:""`

	GitHub struct {
		Token         string `envconfig:"GITHUB_TOKEN"`
		WebhookSecret string `envconfig:"GITHUB_WEBHOOK_SECRET"`
		ReportOwner   string `envconfig:"GITHUB_REPORT_OWNER"`
		ReportRepo    string `envconfig:"GITHUB_REPORT_REPO"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Buffer struct {
		TTL      time.Duration `envconfig:"BUFFER_TTL" default:"72h"`
		PageSize int           `envconfig:"BUFFER_PAGE_SIZE" default:"500"`
	} `envconfig:""`

	Sync struct {
		Interval time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	} `envconfig:""`

	Report struct {
		Interval    time.Duration `envconfig:"REPORT_INTERVAL" default:"4h"`
		SnapshotTTL time.Duration `envconfig:"SNAPSHOT_TTL" default:"720h"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
