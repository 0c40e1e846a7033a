package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ragdesk/internal/model"
)

const defaultTTL = 7 * 24 * time.Hour

// RedisStore keeps each session as a Redis list of JSON messages.
// Every append refreshes the key's TTL.
type RedisStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisStore(client *redisv9.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) Session(sessionID string) Log {
	return &redisLog{store: s, key: historyKey(sessionID)}
}

type redisLog struct {
	store *RedisStore
	key   string
}

func (l *redisLog) Messages(ctx context.Context) ([]model.Message, error) {
	raw, err := l.store.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read history failed: %w", err)
	}

	messages := make([]model.Message, 0, len(raw))
	for _, item := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal history message failed: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (l *redisLog) Append(ctx context.Context, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	payloads := make([]interface{}, len(messages))
	for i, msg := range messages {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal history message failed: %w", err)
		}
		payloads[i] = b
	}

	_, err := l.store.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.RPush(ctx, l.key, payloads...)
		pipe.Expire(ctx, l.key, l.store.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history failed: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}
