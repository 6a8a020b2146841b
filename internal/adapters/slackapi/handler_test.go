package slackapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chat-archive-bot/internal/domain"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type recordingBuffer struct {
	events []domain.BufferedEvent
	err    error
}

func (b *recordingBuffer) Put(_ context.Context, event domain.BufferedEvent) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBuffer) ListUnprocessed(context.Context, int) ([]domain.BufferedEvent, error) {
	return b.events, nil
}

func (b *recordingBuffer) MarkProcessed(context.Context, []domain.BufferedEvent) error { return nil }

func signedRequest(t *testing.T, body []byte, ts string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("v0:" + ts + ":" + string(body)))
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func nowTS() string {
	return fmt.Sprintf("%d", time.Now().Unix())
}

func TestHandleEventsEchoesChallenge(t *testing.T) {
	handler := NewHandler(&recordingBuffer{}, testSecret, zerolog.Nop())
	body := []byte(`{"type":"url_verification","token":"tok","challenge":"abc123"}`)

	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, signedRequest(t, body, nowTS()))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("ответ не JSON: %v", err)
	}
	if resp["challenge"] != "abc123" {
		t.Fatalf("ожидали эхо challenge, получили %q", resp["challenge"])
	}
}

func TestHandleEventsRejectsBadSignature(t *testing.T) {
	handler := NewHandler(&recordingBuffer{}, testSecret, zerolog.Nop())
	body := []byte(`{"type":"url_verification","challenge":"abc123"}`)

	req := signedRequest(t, body, nowTS())
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")

	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401 для неверной подписи, получили %d", rec.Code)
	}
}

func TestHandleEventsRejectsStaleTimestamp(t *testing.T) {
	handler := NewHandler(&recordingBuffer{}, testSecret, zerolog.Nop())
	body := []byte(`{"type":"url_verification","challenge":"abc123"}`)

	stale := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, signedRequest(t, body, stale))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401 для устаревшего запроса, получили %d", rec.Code)
	}
}

func TestHandleEventsBuffersMessage(t *testing.T) {
	buffer := &recordingBuffer{}
	handler := NewHandler(buffer, testSecret, zerolog.Nop())
	body := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C123","user":"U42","text":"привет","ts":"1727787000.000100","thread_ts":"1727786000.000100","files":[{"id":"F1","name":"a.png","mimetype":"image/png","url_private":"https://files.example/a.png"}]}}`)

	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, signedRequest(t, body, nowTS()))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if len(buffer.events) != 1 {
		t.Fatalf("ожидали одно событие в буфере, получили %d", len(buffer.events))
	}
	event := buffer.events[0]
	if event.EventID != "1727787000.000100" || event.ChannelID != "C123" || event.UserID != "U42" {
		t.Fatalf("неожиданное событие: %+v", event)
	}
	if event.ThreadID != "1727786000.000100" {
		t.Fatalf("не сохранился тред: %+v", event)
	}
	if len(event.Attachments) != 1 || event.Attachments[0].Name != "a.png" {
		t.Fatalf("не сохранились вложения: %+v", event.Attachments)
	}
}

func TestHandleEventsAcknowledgesDespiteBufferFailure(t *testing.T) {
	buffer := &recordingBuffer{err: errors.New("redis недоступен")}
	handler := NewHandler(buffer, testSecret, zerolog.Nop())
	body := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C123","user":"U42","text":"привет","ts":"1727787000.000100"}}`)

	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, signedRequest(t, body, nowTS()))
	if rec.Code != http.StatusOK {
		t.Fatalf("сбой буфера не должен отдавать ошибку источнику, получили %d", rec.Code)
	}
}

func TestHandleEventsIgnoresUnknownTypes(t *testing.T) {
	buffer := &recordingBuffer{}
	handler := NewHandler(buffer, testSecret, zerolog.Nop())
	body := []byte(`{"type":"event_callback","event":{"type":"reaction_added","user":"U42"}}`)

	rec := httptest.NewRecorder()
	handler.HandleEvents(rec, signedRequest(t, body, nowTS()))
	if rec.Code != http.StatusOK {
		t.Fatalf("неизвестные события подтверждаются, получили %d", rec.Code)
	}
	if len(buffer.events) != 0 {
		t.Fatalf("неизвестные события не буферизуются: %+v", buffer.events)
	}
}
