// Package directory is the read side of classroom, class and profile data
// owned by other services. The attendance core only consumes it.
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"classattend/internal/apperr"
	"classattend/internal/geo"
)

var (
	ErrClassNotFound     = apperr.NotFound("class not found")
	ErrClassroomNotFound = apperr.NotFound("classroom not found")
	ErrProfileNotFound   = apperr.NotFound("profile not found")
)

// ClassStatus is the lifecycle of a class session.
type ClassStatus string

const (
	ClassScheduled  ClassStatus = "scheduled"
	ClassInProgress ClassStatus = "in-progress"
	ClassCompleted  ClassStatus = "completed"
	ClassCancelled  ClassStatus = "cancelled"
)

// Classroom is a group of students.
type Classroom struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	StudentIDs []string `json:"student_ids"`
}

// HasStudent reports whether studentID is assigned to the classroom.
func (c *Classroom) HasStudent(studentID string) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// Schedule describes when a class takes place: either a one-off date or a
// weekly recurrence, both with a wall-clock start time "HH:MM".
type Schedule struct {
	Recurring bool           `json:"recurring"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
	StartTime string         `json:"start_time"`
	Date      *time.Time     `json:"date,omitempty"`
}

// StartOn returns the scheduled start of the occurrence that falls on the
// calendar day of now, in loc. ok is false when the schedule can't produce
// one (no start time, one-off without a date, or recurring class not held
// on that weekday).
func (s Schedule) StartOn(now time.Time, loc *time.Location) (time.Time, bool) {
	hour, minute, err := parseClock(s.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	if !s.Recurring {
		if s.Date == nil {
			return time.Time{}, false
		}
		// DATE columns scan as midnight UTC; the calendar day is taken as is.
		d := *s.Date
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), true
	}

	local := now.In(loc)
	if len(s.Weekdays) > 0 && !containsWeekday(s.Weekdays, local.Weekday()) {
		return time.Time{}, false
	}
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc), true
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("empty start time")
	}
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// Class is a scheduled session taught to one classroom.
type Class struct {
	ID          string      `json:"id"`
	ClassroomID string      `json:"classroom_id"`
	TeacherID   string      `json:"teacher_id"`
	Title       string      `json:"title"`
	Status      ClassStatus `json:"status"`
	Schedule    Schedule    `json:"schedule"`
	Location    *geo.Site   `json:"location,omitempty"`
}

// Profile is a user as known to the identity service.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// Directory is the lookup surface the attendance core consumes.
type Directory interface {
	GetClass(ctx context.Context, classID string) (*Class, error)
	GetClassroom(ctx context.Context, classroomID string) (*Classroom, error)
	SetClassStatus(ctx context.Context, classID string, status ClassStatus) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	ListProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
}
