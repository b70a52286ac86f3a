package window

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"classattend/internal/directory"
	"classattend/internal/metrics"
)

// Classes is the part of the directory the controller needs.
type Classes interface {
	GetClass(ctx context.Context, classID string) (*directory.Class, error)
	SetClassStatus(ctx context.Context, classID string, status directory.ClassStatus) error
}

// Controller drives the per-class window state machine. Writes are
// last-write-wins; concurrent open/close from two instructors is not
// serialized.
type Controller struct {
	store   Store
	classes Classes
	log     *logrus.Logger
	now     func() time.Time
}

// NewController creates a controller using the wall clock.
func NewController(store Store, classes Classes, log *logrus.Logger) *Controller {
	return &Controller{store: store, classes: classes, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Open opens the window for classID. A nil duration leaves it open until
// an explicit Close.
func (c *Controller) Open(ctx context.Context, classID, instructorID string, durationMinutes *int) (State, error) {
	if durationMinutes != nil && *durationMinutes <= 0 {
		return State{}, ErrInvalidDuration
	}
	class, err := c.classes.GetClass(ctx, classID)
	if err != nil {
		return State{}, err
	}

	now := c.now().UTC()
	state := State{
		ClassID:  classID,
		IsOpen:   true,
		OpenedAt: now,
		OpenedBy: instructorID,
	}
	if durationMinutes != nil {
		closes := now.Add(time.Duration(*durationMinutes) * time.Minute)
		state.ClosesAt = &closes
	}
	if err := c.store.Put(ctx, state); err != nil {
		return State{}, err
	}
	metrics.WindowTransitions.WithLabelValues("open").Inc()

	if class.Status == directory.ClassScheduled {
		if err := c.classes.SetClassStatus(ctx, classID, directory.ClassInProgress); err != nil {
			c.log.WithFields(logrus.Fields{"class_id": classID, "error": err.Error()}).Warn("class status not advanced")
		}
	}

	c.log.WithFields(logrus.Fields{
		"class_id":      classID,
		"instructor_id": instructorID,
		"closes_at":     state.ClosesAt,
	}).Info("attendance window opened")
	return state, nil
}

// Close closes an open window and keeps OpenedAt/ClosesAt for audit. The
// stored flag decides, so a window past its ClosesAt can still be closed
// explicitly.
func (c *Controller) Close(ctx context.Context, classID string) (time.Time, error) {
	state, err := c.store.Get(ctx, classID)
	if err != nil {
		return time.Time{}, err
	}
	if state == nil || !state.IsOpen {
		return time.Time{}, ErrWindowNotOpen
	}

	now := c.now().UTC()
	state.IsOpen = false
	state.ClosedAt = &now
	if err := c.store.Put(ctx, *state); err != nil {
		return time.Time{}, err
	}
	metrics.WindowTransitions.WithLabelValues("close").Inc()

	c.log.WithField("class_id", classID).Info("attendance window closed")
	return now, nil
}

// IsOpen reports whether classID currently accepts submissions.
func (c *Controller) IsOpen(ctx context.Context, classID string) (bool, error) {
	state, err := c.store.Get(ctx, classID)
	if err != nil {
		return false, err
	}
	return state.OpenAt(c.now()), nil
}

// Get returns the stored state, nil when the class never had a window.
func (c *Controller) Get(ctx context.Context, classID string) (*State, error) {
	return c.store.Get(ctx, classID)
}
