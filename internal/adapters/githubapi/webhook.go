package githubapi

import (
	"net/http"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"

	"chat-archive-bot/internal/infra/metrics"
)

// WebhookHandler принимает события GitHub и подтверждает их после проверки подписи.
type WebhookHandler struct {
	secret []byte
	log    zerolog.Logger
}

// NewWebhookHandler создаёт обработчик вебхука GitHub.
func NewWebhookHandler(secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), log: log}
}

// HandleEvents обрабатывает POST /github/events.
// Подпись X-Hub-Signature-256 проверяется до любой другой работы;
// валидные события любых типов подтверждаются без обработки.
func (h *WebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	_, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("github", "bad_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	metrics.IngestEventsTotal.WithLabelValues("github", "acknowledged").Inc()
	h.log.Debug().Str("event", github.WebHookType(r)).Msg("github: событие подтверждено")
	w.WriteHeader(http.StatusOK)
}
