package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ragdesk/internal/model"
)

// Log is the ordered message log of one session.
type Log interface {
	Messages(ctx context.Context) ([]model.Message, error)
	Append(ctx context.Context, messages ...model.Message) error
}

// Store hands out session logs. Sessions are created on first reference.
type Store interface {
	Session(sessionID string) Log
}

type Kind int

const (
	InProcess Kind = iota
	Durable
)

func (k Kind) String() string {
	switch k {
	case Durable:
		return "redis"
	default:
		return "memory"
	}
}

// Backend is the history variant chosen once at startup.
type Backend struct {
	Kind        Kind
	RedisURL    string
	TTL         time.Duration
	MaxSessions int
	// FallbackReason explains why an in-process backend was selected.
	FallbackReason string
}

// ResolveBackend picks Durable when redisURL is present and parses as a Redis
// URL, InProcess otherwise. It never fails.
func ResolveBackend(redisURL string, ttl time.Duration, maxSessions int) Backend {
	b := Backend{
		Kind:        InProcess,
		TTL:         ttl,
		MaxSessions: maxSessions,
	}
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		b.FallbackReason = "no history store url configured"
		return b
	}
	if _, err := redisv9.ParseURL(redisURL); err != nil {
		b.FallbackReason = fmt.Sprintf("invalid history store url: %v", err)
		return b
	}
	b.Kind = Durable
	b.RedisURL = redisURL
	return b
}
