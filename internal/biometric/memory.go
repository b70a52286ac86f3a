package biometric

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for dev and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]FaceEmbedding
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]FaceEmbedding), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, emb FaceEmbedding) (FaceEmbedding, error) {
	if emb.ID == "" {
		emb.ID = uuid.NewString()
	}
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = m.now().UTC()
	}
	emb.Vector = append(Embedding(nil), emb.Vector...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[emb.ID] = emb
	return emb, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*FaceEmbedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emb, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &emb, nil
}

func (m *MemoryStore) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emb, ok := m.items[id]
	if !ok {
		return ErrEmbeddingNotFound
	}
	emb.Active = active
	m.items[id] = emb
	return nil
}

func (m *MemoryStore) ListActiveByUser(_ context.Context, userID string) ([]FaceEmbedding, error) {
	return m.filter(func(e FaceEmbedding) bool { return e.Active && e.UserID == userID }), nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]FaceEmbedding, error) {
	return m.filter(func(e FaceEmbedding) bool { return e.Active }), nil
}

func (m *MemoryStore) filter(keep func(FaceEmbedding) bool) []FaceEmbedding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FaceEmbedding
	for _, e := range m.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
