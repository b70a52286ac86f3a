package attendance

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type recordKey struct {
	classID, studentID, classroomID string
}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[recordKey]Record)}
}

func (m *MemoryRepository) Upsert(_ context.Context, rec Record) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{rec.ClassID, rec.StudentID, rec.ClassroomID}
	prev, exists := m.records[key]
	if exists {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
	} else {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = rec.MarkedAt
	}
	rec.UpdatedAt = rec.MarkedAt
	m.records[key] = rec
	return rec, !exists, nil
}

func (m *MemoryRepository) Get(_ context.Context, classID, studentID, classroomID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{classID, studentID, classroomID}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryRepository) ListByClass(_ context.Context, classID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for k, rec := range m.records {
		if k.classID == classID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// Len returns the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
