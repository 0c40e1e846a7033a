package history

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"ragdesk/internal/model"
)

const defaultMaxSessions = 10000

// MemoryStore is the single-process fallback. It is bounded in both session
// count (least recently written sessions are evicted first) and age.
// Nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, []model.Message]
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, []model.Message](maxSessions, nil, ttl),
	}
}

func (s *MemoryStore) Session(sessionID string) Log {
	return &memoryLog{store: s, sessionID: sessionID}
}

// Len reports how many sessions are currently held.
func (s *MemoryStore) Len() int {
	return s.sessions.Len()
}

type memoryLog struct {
	store     *MemoryStore
	sessionID string
}

func (l *memoryLog) Messages(ctx context.Context) ([]model.Message, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	current, _ := l.store.sessions.Get(l.sessionID)
	out := make([]model.Message, len(current))
	copy(out, current)
	return out, nil
}

func (l *memoryLog) Append(ctx context.Context, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	current, _ := l.store.sessions.Get(l.sessionID)
	next := make([]model.Message, 0, len(current)+len(messages))
	next = append(next, current...)
	next = append(next, messages...)
	l.store.sessions.Add(l.sessionID, next)
	return nil
}
