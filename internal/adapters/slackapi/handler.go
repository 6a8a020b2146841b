package slackapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

const maxBodySize = 1 << 20

// Handler принимает вебхуки Slack Events API и складывает сообщения в буфер.
type Handler struct {
	buffer        domain.EventBuffer
	signingSecret string
	log           zerolog.Logger
}

// NewHandler создаёт обработчик вебхука.
func NewHandler(buffer domain.EventBuffer, signingSecret string, log zerolog.Logger) *Handler {
	return &Handler{buffer: buffer, signingSecret: signingSecret, log: log}
}

// HandleEvents обрабатывает POST /slack/events.
//
// Подпись и давность запроса проверяются до любой другой работы. После
// успешной проверки обработчик всегда отвечает 200, даже если запись в буфер
// не удалась: ответ с ошибкой заставил бы Slack бесконечно передоставлять
// событие. Потеря одного события дешевле шторма ретраев; сбой виден в логах
// и метрике buffer_put_errors_total.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("slack", "body_read").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// NewSecretsVerifier отклоняет запросы со сдвигом таймстампа больше 5 минут.
	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("slack", "stale_timestamp").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("slack", "verify").Inc()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("slack", "bad_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.log.Error().Err(err).Msg("slack: не удалось разобрать событие")
		metrics.IngestRejectedTotal.WithLabelValues("slack", "parse").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge": challenge.Challenge})
	case slackevents.CallbackEvent:
		h.handleCallback(r, body, event)
		w.WriteHeader(http.StatusOK)
	default:
		// Неизвестные типы подтверждаем без обработки.
		metrics.IngestEventsTotal.WithLabelValues("slack", "ignored").Inc()
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) handleCallback(r *http.Request, body []byte, event slackevents.EventsAPIEvent) {
	messageEvent, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		metrics.IngestEventsTotal.WithLabelValues("slack", "ignored").Inc()
		return
	}
	if messageEvent.BotID != "" || messageEvent.SubType == "bot_message" {
		metrics.IngestEventsTotal.WithLabelValues("slack", "ignored").Inc()
		return
	}
	if messageEvent.SubType != "" && messageEvent.SubType != "file_share" && messageEvent.SubType != "thread_broadcast" {
		// Правки, удаления и служебные подтипы в архив не попадают.
		metrics.IngestEventsTotal.WithLabelValues("slack", "ignored").Inc()
		return
	}

	buffered := domain.BufferedEvent{
		EventID:         messageEvent.TimeStamp,
		ChannelID:       messageEvent.Channel,
		UserID:          messageEvent.User,
		Text:            messageEvent.Text,
		SourceTimestamp: messageEvent.TimeStamp,
		ThreadID:        messageEvent.ThreadTimeStamp,
		Attachments:     parseFiles(body),
	}

	if err := h.buffer.Put(r.Context(), buffered); err != nil {
		// Событие потеряно, но Slack получает 200: иначе нас ждёт шторм ретраев.
		metrics.BufferPutErrors.Inc()
		metrics.IngestEventsTotal.WithLabelValues("slack", "dropped").Inc()
		h.log.Error().Err(err).
			Str("channel", buffered.ChannelID).
			Str("event", buffered.EventID).
			Msg("slack: событие не записано в буфер")
		return
	}
	metrics.IngestEventsTotal.WithLabelValues("slack", "buffered").Inc()
}

// parseFiles достаёт вложения из сырого тела события.
func parseFiles(body []byte) []domain.FileRef {
	var payload struct {
		Event struct {
			Files []struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				Mimetype   string `json:"mimetype"`
				URLPrivate string `json:"url_private"`
			} `json:"files"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if len(payload.Event.Files) == 0 {
		return nil
	}
	refs := make([]domain.FileRef, 0, len(payload.Event.Files))
	for _, f := range payload.Event.Files {
		refs = append(refs, domain.FileRef{ID: f.ID, Name: f.Name, Mimetype: f.Mimetype, URL: f.URLPrivate})
	}
	return refs
}
