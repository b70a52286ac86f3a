package window

import (
	"context"
	"time"
)

// State is the attendance window of one class session.
type State struct {
	ClassID  string     `json:"class_id"`
	IsOpen   bool       `json:"is_open"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
	OpenedBy string     `json:"opened_by"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// OpenAt derives whether submissions are accepted at now. The stored flag
// can be stale past ClosesAt, so time is always checked.
func (s *State) OpenAt(now time.Time) bool {
	if s == nil || !s.IsOpen {
		return false
	}
	if s.ClosesAt == nil {
		return true
	}
	return !now.Before(s.OpenedAt) && !now.After(*s.ClosesAt)
}

// Store persists window state keyed by class id. Get returns nil when the
// class never had a window.
type Store interface {
	Get(ctx context.Context, classID string) (*State, error)
	Put(ctx context.Context, state State) error
}
