package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aorysoft/leadbot/internal/llm"
)

// HistoryStore persists per-thread chat transcripts. Loading a thread that
// has never spoken returns an empty history, not an error.
type HistoryStore interface {
	Load(ctx context.Context, threadID string) ([]llm.Message, error)
	Save(ctx context.Context, threadID string, history []llm.Message) error
}

// RedisHistoryStore keeps transcripts in Redis with a TTL so stale threads
// expire on their own.
type RedisHistoryStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisHistoryStore creates a Redis-backed history store. A zero ttl
// defaults to 24h.
func NewRedisHistoryStore(client *redis.Client, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("conversation: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisHistoryStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("leadbot.internal.conversation.history"),
	}
}

func (s *RedisHistoryStore) Save(ctx context.Context, threadID string, history []llm.Message) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, threadKey(threadID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Load(ctx context.Context, threadID string) ([]llm.Message, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, threadKey(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []llm.Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

func threadKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

// MemoryHistoryStore is the in-process fallback used when Redis is not
// configured. Histories live for the life of the process.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	threads map[string][]llm.Message
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{threads: make(map[string][]llm.Message)}
}

func (s *MemoryHistoryStore) Load(_ context.Context, threadID string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.threads[threadID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryHistoryStore) Save(_ context.Context, threadID string, history []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(history))
	copy(out, history)
	s.threads[threadID] = out
	return nil
}
