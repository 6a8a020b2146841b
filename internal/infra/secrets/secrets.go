package secrets

import (
	"errors"

	"chat-archive-bot/internal/infra/config"
)

// Bundle содержит секреты, разрешённые один раз на время жизни процесса.
// Передаётся компонентам явно, без глобального изменяемого состояния.
type Bundle struct {
	SlackBotToken       string
	SlackSigningSecret  string
	GitHubToken         string
	GitHubWebhookSecret string
}

// FromConfig собирает секреты из окружения.
func FromConfig(cfg config.AppConfig) (Bundle, error) {
	b := Bundle{
		SlackBotToken:       cfg.Slack.BotToken,
		SlackSigningSecret:  cfg.Slack.SigningSecret,
		GitHubToken:         cfg.GitHub.Token,
		GitHubWebhookSecret: cfg.GitHub.WebhookSecret,
	}
	if b.SlackSigningSecret == "" {
		return Bundle{}, errors.New("не задан SLACK_SIGNING_SECRET")
	}
	if b.GitHubToken == "" {
		return Bundle{}, errors.New("не задан GITHUB_TOKEN")
	}
	return b, nil
}
