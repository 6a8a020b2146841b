package slackapi

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

// Notifier отправляет сообщения через Slack Web API.
type Notifier struct {
	client *slack.Client
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт клиента отправки.
func NewNotifier(botToken string) *Notifier {
	return &Notifier{client: slack.New(botToken)}
}

// PostMessage отправляет текст в канал, при необходимости разбивая на части.
// Возвращает идентификатор (timestamp) первого отправленного сообщения.
func (n *Notifier) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	parts := SplitMessage(text)
	if len(parts) == 0 {
		return "", fmt.Errorf("пустое сообщение для канала %s", channelID)
	}
	var firstTS string
	for _, part := range parts {
		start := time.Now()
		_, ts, err := n.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(part, false))
		metrics.ObserveNetworkRequest("slack", "post_message", channelID, start, err)
		if err != nil {
			metrics.NotifySendErrors.Inc()
			return "", fmt.Errorf("отправка сообщения в %s: %w", channelID, err)
		}
		if firstTS == "" {
			firstTS = ts
		}
	}
	return firstTS, nil
}
