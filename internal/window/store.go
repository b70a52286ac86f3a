package window

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window in its own hash, so a class window is
// written without touching any other document.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store with keys "<prefix><classID>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "attendance:window:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get loads a window.
func (s *RedisStore) Get(ctx context.Context, classID string) (*State, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+classID).Result()
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeState(classID, fields)
}

// Put replaces a window.
func (s *RedisStore) Put(ctx context.Context, state State) error {
	key := s.prefix + state.ClassID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeState(state))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save window: %w", err)
	}
	return nil
}

func encodeState(s State) map[string]any {
	fields := map[string]any{
		"is_open":   strconv.FormatBool(s.IsOpen),
		"opened_at": s.OpenedAt.UTC().Format(time.RFC3339Nano),
		"opened_by": s.OpenedBy,
	}
	if s.ClosesAt != nil {
		fields["closes_at"] = s.ClosesAt.UTC().Format(time.RFC3339Nano)
	}
	if s.ClosedAt != nil {
		fields["closed_at"] = s.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeState(classID string, fields map[string]string) (*State, error) {
	st := &State{ClassID: classID, OpenedBy: fields["opened_by"]}
	var err error
	if st.IsOpen, err = strconv.ParseBool(fields["is_open"]); err != nil {
		return nil, fmt.Errorf("decode window is_open: %w", err)
	}
	if st.OpenedAt, err = time.Parse(time.RFC3339Nano, fields["opened_at"]); err != nil {
		return nil, fmt.Errorf("decode window opened_at: %w", err)
	}
	if st.ClosesAt, err = optionalTime(fields, "closes_at"); err != nil {
		return nil, err
	}
	if st.ClosedAt, err = optionalTime(fields, "closed_at"); err != nil {
		return nil, err
	}
	return st, nil
}

func optionalTime(fields map[string]string, key string) (*time.Time, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("decode window %s: %w", key, err)
	}
	return &t, nil
}

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Get(_ context.Context, classID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[classID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) Put(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.ClassID] = state
	return nil
}

// NewStore selects a backend: "memory" for process-local state, anything
// else for Redis.
func NewStore(backend string, client *redis.Client) Store {
	if backend == "memory" {
		return NewMemoryStore()
	}
	return NewRedisStore(client, "")
}
