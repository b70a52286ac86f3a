package attendance

import (
	"time"

	"classattend/internal/geo"
)

// Status of a student for one class session.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

// MarkedBy attributes a record to the path that produced it.
type MarkedBy string

const (
	MarkedByAuto              MarkedBy = "auto"
	MarkedByTeacher           MarkedBy = "teacher"
	MarkedByFacialRecognition MarkedBy = "facial-recognition"
	MarkedByStudent           MarkedBy = "student"
	MarkedByLocation          MarkedBy = "location"
	MarkedBySystem            MarkedBy = "system"
)

// Record is the canonical attendance of one student for one class session,
// unique per (class, student, classroom).
type Record struct {
	ID                 string    `json:"id"`
	ClassID            string    `json:"class_id"`
	ClassroomID        string    `json:"classroom_id"`
	StudentID          string    `json:"student_id"`
	Status             Status    `json:"status"`
	MarkedBy           MarkedBy  `json:"marked_by"`
	MarkedByUser       *string   `json:"marked_by_user,omitempty"`
	MarkedAt           time.Time `json:"marked_at"`
	Location           *geo.Fix  `json:"location,omitempty"`
	FaceRecognized     bool      `json:"face_recognized"`
	MatchedEmbeddingID *string   `json:"matched_embedding_id,omitempty"`
	Similarity         *float64  `json:"similarity,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StudentAttendance is one roster line of the read path. Recorded is false
// when the status is the absent default rather than a stored record.
type StudentAttendance struct {
	StudentID      string     `json:"student_id"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Status         Status     `json:"status"`
	MarkedBy       MarkedBy   `json:"marked_by"`
	MarkedByUser   *string    `json:"marked_by_user,omitempty"`
	MarkedAt       *time.Time `json:"marked_at,omitempty"`
	FaceRecognized bool       `json:"face_recognized"`
	Notes          string     `json:"notes,omitempty"`
	Recorded       bool       `json:"recorded"`
}

// Summary counts roster lines per status.
type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
}

func (s *Summary) add(st Status) {
	s.Total++
	switch st {
	case StatusPresent:
		s.Present++
	case StatusLate:
		s.Late++
	case StatusAbsent:
		s.Absent++
	case StatusExcused:
		s.Excused++
	}
}

// ClassAttendance is the merged roster view of a class session.
type ClassAttendance struct {
	ClassID     string              `json:"class_id"`
	ClassroomID string              `json:"classroom_id"`
	Students    []StudentAttendance `json:"students"`
	Summary     Summary             `json:"summary"`
}

// BulkEntry is one line of a bulk mark.
type BulkEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=present late absent excused"`
	Notes     string `json:"notes" validate:"max=500"`
}

// EntryError reports a bulk entry that was not applied.
type EntryError struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id,omitempty"`
	Error     string `json:"error"`
}

// BulkResult summarizes a bulk mark.
type BulkResult struct {
	ModifiedCount int          `json:"modified_count"`
	UpsertedCount int          `json:"upserted_count"`
	Errors        []EntryError `json:"errors"`
}
