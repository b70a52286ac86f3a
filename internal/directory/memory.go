package directory

import (
	"context"
	"sync"
)

// Memory is an in-process Directory, seeded by the caller.
type Memory struct {
	mu         sync.RWMutex
	classes    map[string]Class
	classrooms map[string]Classroom
	profiles   map[string]Profile
}

// NewMemory creates an empty directory.
func NewMemory() *Memory {
	return &Memory{
		classes:    make(map[string]Class),
		classrooms: make(map[string]Classroom),
		profiles:   make(map[string]Profile),
	}
}

// PutClass adds or replaces a class.
func (m *Memory) PutClass(c Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Status == "" {
		c.Status = ClassScheduled
	}
	m.classes[c.ID] = c
}

// PutClassroom adds or replaces a classroom.
func (m *Memory) PutClassroom(c Classroom) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	m.classrooms[c.ID] = c
}

// PutProfile adds or replaces a profile.
func (m *Memory) PutProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

func (m *Memory) GetClass(_ context.Context, classID string) (*Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[classID]
	if !ok {
		return nil, ErrClassNotFound
	}
	return &c, nil
}

func (m *Memory) GetClassroom(_ context.Context, classroomID string) (*Classroom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classrooms[classroomID]
	if !ok {
		return nil, ErrClassroomNotFound
	}
	c.StudentIDs = append([]string(nil), c.StudentIDs...)
	return &c, nil
}

func (m *Memory) SetClassStatus(_ context.Context, classID string, status ClassStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return ErrClassNotFound
	}
	c.Status = status
	m.classes[classID] = c
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (m *Memory) ListProfiles(_ context.Context, userIDs []string) (map[string]Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
