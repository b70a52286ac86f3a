// Package audit keeps an append-only history of attendance record changes
// next to the last-write-wins current state.
package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"classattend/internal/queue"
)

// MessageType tags change events on the queue.
const MessageType = "attendance.changed"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Change is one write to an attendance record. Previous fields are empty
// when the write created the record.
type Change struct {
	ID               string    `json:"id" db:"id"`
	RecordID         string    `json:"record_id" db:"record_id"`
	ClassID          string    `json:"class_id" db:"class_id"`
	ClassroomID      string    `json:"classroom_id" db:"classroom_id"`
	StudentID        string    `json:"student_id" db:"student_id"`
	PreviousStatus   string    `json:"previous_status,omitempty" db:"previous_status"`
	PreviousMarkedBy string    `json:"previous_marked_by,omitempty" db:"previous_marked_by"`
	Status           string    `json:"status" db:"status"`
	MarkedBy         string    `json:"marked_by" db:"marked_by"`
	Actor            string    `json:"actor" db:"actor"`
	OccurredAt       time.Time `json:"occurred_at" db:"occurred_at"`
}

// Log stores changes.
type Log interface {
	Append(ctx context.Context, c Change) error
	ListByClass(ctx context.Context, classID string) ([]Change, error)
}

// Publisher hands changes to the queue for asynchronous persistence.
type Publisher struct {
	q queue.Queue
}

// NewPublisher creates a publisher on q.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

// Notify enqueues c.
func (p *Publisher) Notify(ctx context.Context, c Change) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return p.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}

// Consumer drains change events into a Log.
type Consumer struct {
	q   queue.Queue
	out Log
	log *logrus.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(q queue.Queue, out Log, log *logrus.Logger) *Consumer {
	return &Consumer{q: q, out: out, log: log}
}

// Run consumes until ctx is cancelled. Messages of other types are skipped;
// failed appends are logged and not retried.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.log.Info("audit consumer started")
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		var change Change
		if err := json.Unmarshal(msg.Body, &change); err != nil {
			c.log.WithField("error", err.Error()).Warn("dropping malformed change event")
			continue
		}
		if err := c.out.Append(ctx, change); err != nil {
			c.log.WithFields(logrus.Fields{
				"change_id": change.ID,
				"record_id": change.RecordID,
				"error":     err.Error(),
			}).Error("append change failed")
			continue
		}
		c.log.WithFields(logrus.Fields{"change_id": change.ID, "record_id": change.RecordID}).Debug("change appended")
	}
	c.log.Info("audit consumer stopped")
	return nil
}

// Repository is the Postgres change log.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts c; replays of the same change id are ignored.
func (r *Repository) Append(ctx context.Context, c Change) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO attendance_audit (id, record_id, class_id, classroom_id, student_id,
			previous_status, previous_marked_by, status, marked_by, actor, occurred_at)
		VALUES (:id, :record_id, :class_id, :classroom_id, :student_id,
			:previous_status, :previous_marked_by, :status, :marked_by, :actor, :occurred_at)
		ON CONFLICT (id) DO NOTHING
	`, c)
	if err != nil {
		return fmt.Errorf("append audit change: %w", err)
	}
	return nil
}

// ListByClass returns the class history, oldest first.
func (r *Repository) ListByClass(ctx context.Context, classID string) ([]Change, error) {
	var out []Change
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, record_id, class_id, classroom_id, student_id, previous_status,
			previous_marked_by, status, marked_by, actor, occurred_at
		FROM attendance_audit
		WHERE class_id = $1
		ORDER BY occurred_at, id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("list audit changes: %w", err)
	}
	return out, nil
}

// Memory is an in-process Log.
type Memory struct {
	mu      sync.RWMutex
	changes []Change
	seen    map[string]bool
}

// NewMemory creates an empty log.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]bool)}
}

func (m *Memory) Append(_ context.Context, c Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID != "" && m.seen[c.ID] {
		return nil
	}
	m.seen[c.ID] = true
	m.changes = append(m.changes, c)
	return nil
}

func (m *Memory) ListByClass(_ context.Context, classID string) ([]Change, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Change
	for _, c := range m.changes {
		if c.ClassID == classID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
