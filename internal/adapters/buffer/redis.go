package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-archive-bot/internal/domain"
	"chat-archive-bot/internal/infra/metrics"
)

const keyPrefix = "event:"

// RedisBuffer реализует domain.EventBuffer поверх Redis с TTL на каждое событие.
// Ключом служит пара (канал, идентификатор события): повторная доставка
// перезаписывает запись и заново взводит срок жизни.
type RedisBuffer struct {
	client *redis.Client
	ttl    time.Duration
}

var _ domain.EventBuffer = (*RedisBuffer)(nil)

// NewRedisBuffer создаёт буфер с указанным сроком жизни записей.
func NewRedisBuffer(client *redis.Client, ttl time.Duration) *RedisBuffer {
	return &RedisBuffer{client: client, ttl: ttl}
}

func eventKey(channelID, eventID string) string {
	return keyPrefix + channelID + ":" + eventID
}

// Put записывает событие, перезаписывая прежнюю копию с тем же ключом.
func (b *RedisBuffer) Put(ctx context.Context, event domain.BufferedEvent) error {
	if event.EventID == "" || event.ChannelID == "" {
		return errors.New("событие без идентификатора или канала")
	}
	event.ExpiresAt = time.Now().UTC().Add(b.ttl)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("сериализация события: %w", err)
	}
	start := time.Now()
	err = b.client.Set(ctx, eventKey(event.ChannelID, event.EventID), payload, b.ttl).Err()
	metrics.ObserveNetworkRequest("redis", "buffer_put", event.ChannelID, start, err)
	if err != nil {
		return fmt.Errorf("запись события в буфер: %w", err)
	}
	return nil
}

// ListUnprocessed возвращает не более limit необработанных событий.
func (b *RedisBuffer) ListUnprocessed(ctx context.Context, limit int) ([]domain.BufferedEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []domain.BufferedEvent
	start := time.Now()
	iter := b.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := b.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			metrics.ObserveNetworkRequest("redis", "buffer_list", "buffer", start, err)
			return nil, fmt.Errorf("чтение события %s: %w", iter.Val(), err)
		}
		var event domain.BufferedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("десериализация события %s: %w", iter.Val(), err)
		}
		if event.Processed {
			continue
		}
		out = append(out, event)
		if len(out) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		metrics.ObserveNetworkRequest("redis", "buffer_list", "buffer", start, err)
		return nil, fmt.Errorf("обход буфера: %w", err)
	}
	metrics.ObserveNetworkRequest("redis", "buffer_list", "buffer", start, nil)
	return out, nil
}

// MarkProcessed помечает события обработанными, не трогая их срок жизни.
// Исчезнувшие по TTL записи пропускаются: архив уже записан идемпотентно.
func (b *RedisBuffer) MarkProcessed(ctx context.Context, events []domain.BufferedEvent) error {
	for _, event := range events {
		event.Processed = true
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("сериализация события: %w", err)
		}
		key := eventKey(event.ChannelID, event.EventID)
		start := time.Now()
		_, err = b.client.SetXX(ctx, key, payload, redis.KeepTTL).Result()
		metrics.ObserveNetworkRequest("redis", "buffer_mark", event.ChannelID, start, err)
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("отметка события %s: %w", key, err)
		}
	}
	return nil
}
