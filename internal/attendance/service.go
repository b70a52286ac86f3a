package attendance

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"classattend/internal/audit"
	"classattend/internal/biometric"
	"classattend/internal/directory"
	"classattend/internal/geo"
	"classattend/internal/metrics"
	"classattend/internal/window"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Directory is the lookup surface the recorder needs.
type Directory interface {
	GetClass(ctx context.Context, classID string) (*directory.Class, error)
	GetClassroom(ctx context.Context, classroomID string) (*directory.Classroom, error)
	ListProfiles(ctx context.Context, userIDs []string) (map[string]directory.Profile, error)
}

// WindowGate answers whether a class accepts self-marks right now.
type WindowGate interface {
	IsOpen(ctx context.Context, classID string) (bool, error)
}

// Verifier runs the 1:1 face check.
type Verifier interface {
	Verify(ctx context.Context, userID string, query biometric.Embedding) (biometric.VerifyResult, error)
}

// ChangeNotifier receives every successful write for the audit log.
type ChangeNotifier interface {
	Notify(ctx context.Context, c audit.Change) error
}

// Deps are the collaborators of a Service. Changes may be nil.
type Deps struct {
	Repo      Repository
	Directory Directory
	Windows   WindowGate
	Faces     Verifier
	Proximity geo.Validator
	Changes   ChangeNotifier
	Log       *logrus.Logger
}

// Options tune the decision rules.
type Options struct {
	EmbeddingDim int
	LateGrace    time.Duration
	Location     *time.Location
}

// Service records attendance from self-marks and instructor marks.
type Service struct {
	repo      Repository
	dir       Directory
	windows   WindowGate
	faces     Verifier
	proximity geo.Validator
	changes   ChangeNotifier
	log       *logrus.Logger
	validate  *validator.Validate

	dim   int
	grace time.Duration
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a service.
func NewService(deps Deps, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:      deps.Repo,
		dir:       deps.Directory,
		windows:   deps.Windows,
		faces:     deps.Faces,
		proximity: deps.Proximity,
		changes:   deps.Changes,
		log:       deps.Log,
		validate:  validator.New(),
		dim:       opts.EmbeddingDim,
		grace:     opts.LateGrace,
		loc:       opts.Location,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SelfMark is a student's own attendance submission.
type SelfMark struct {
	ClassroomID string
	ClassID     string
	StudentID   string
	Embedding   biometric.Embedding
	Location    *geo.Fix
}

// MarkSelf verifies a student's submission and upserts the record. The
// submission is accepted when the face check or the location check passes;
// when both fail a *VerificationFailure is returned and nothing is written.
func (s *Service) MarkSelf(ctx context.Context, in SelfMark) (Record, error) {
	classroom, err := s.dir.GetClassroom(ctx, in.ClassroomID)
	if err != nil {
		return Record{}, err
	}
	if !classroom.HasStudent(in.StudentID) {
		return Record{}, ErrStudentNotInClassroom
	}
	open, err := s.windows.IsOpen(ctx, in.ClassID)
	if err != nil {
		return Record{}, err
	}
	if !open {
		return Record{}, window.ErrWindowNotOpen
	}
	class, err := s.dir.GetClass(ctx, in.ClassID)
	if err != nil {
		return Record{}, err
	}
	if class.ClassroomID != in.ClassroomID {
		return Record{}, ErrClassNotInClassroom
	}

	faceAttempted := len(in.Embedding) > 0
	if !faceAttempted && in.Location == nil {
		return Record{}, ErrNoEvidence
	}
	if faceAttempted {
		if err := in.Embedding.Validate(s.dim); err != nil {
			return Record{}, err
		}
	}
	if in.Location != nil {
		if _, ok := in.Location.Point(); !ok {
			return Record{}, ErrIncompleteLocation
		}
	}

	var face biometric.VerifyResult
	if faceAttempted {
		face, err = s.faces.Verify(ctx, in.StudentID, in.Embedding)
		if err != nil {
			return Record{}, err
		}
	}
	var loc geo.Result
	if in.Location != nil {
		loc = s.proximity.Validate(&in.Location.Coordinates, class.Location)
	}

	if !face.Verified && !loc.Valid {
		metrics.SelfMarkRejections.Inc()
		failure := &VerificationFailure{FaceAttempted: faceAttempted, LocationAttempted: in.Location != nil}
		if faceAttempted {
			sim := face.Similarity
			failure.Similarity = &sim
		}
		if loc.DistanceMeters != nil {
			radius := loc.RadiusMeters
			failure.DistanceMeters = loc.DistanceMeters
			failure.RadiusMeters = &radius
		}
		s.log.WithFields(logrus.Fields{
			"class_id":   in.ClassID,
			"student_id": in.StudentID,
			"reason":     failure.Error(),
		}).Info("self-mark rejected")
		return Record{}, failure
	}

	now := s.now()
	rec := Record{
		ClassID:        in.ClassID,
		ClassroomID:    in.ClassroomID,
		StudentID:      in.StudentID,
		Status:         s.statusAt(class, now),
		MarkedBy:       MarkedByLocation,
		MarkedAt:       now.UTC(),
		Location:       in.Location,
		FaceRecognized: face.Verified,
	}
	if face.Verified {
		rec.MarkedBy = MarkedByFacialRecognition
		id := face.MatchedEmbeddingID
		rec.MatchedEmbeddingID = &id
	}
	if faceAttempted {
		sim := face.Similarity
		rec.Similarity = &sim
	}

	prev, err := s.repo.Get(ctx, rec.ClassID, rec.StudentID, rec.ClassroomID)
	if err != nil {
		return Record{}, err
	}
	return s.write(ctx, prev, rec, in.StudentID)
}

// statusAt is late once now is past the session's scheduled start plus the
// grace period; sessions without a computable start are present.
func (s *Service) statusAt(class *directory.Class, now time.Time) Status {
	start, ok := class.Schedule.StartOn(now, s.loc)
	if ok && now.After(start.Add(s.grace)) {
		return StatusLate
	}
	return StatusPresent
}

// ClassForTeacher loads the class and checks instructorID teaches it.
func (s *Service) ClassForTeacher(ctx context.Context, classID, instructorID string) (*directory.Class, error) {
	class, err := s.dir.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != instructorID {
		return nil, ErrNotClassTeacher
	}
	return class, nil
}

// ManualMark is an instructor's mark for one student.
type ManualMark struct {
	ClassID      string
	StudentID    string
	Status       Status
	Notes        string
	InstructorID string
}

// MarkManual sets a student's status, overwriting whatever was recorded.
func (s *Service) MarkManual(ctx context.Context, in ManualMark) (Record, error) {
	if !in.Status.Valid() {
		return Record{}, ErrInvalidStatus
	}
	class, err := s.ClassForTeacher(ctx, in.ClassID, in.InstructorID)
	if err != nil {
		return Record{}, err
	}
	classroom, err := s.dir.GetClassroom(ctx, class.ClassroomID)
	if err != nil {
		return Record{}, err
	}
	rec, _, err := s.markByTeacher(ctx, class, classroom, BulkEntry{StudentID: in.StudentID, Status: in.Status, Notes: in.Notes}, in.InstructorID)
	return rec, err
}

// BulkMark applies entries independently. Invalid entries are reported in
// the result and never stop the rest of the batch.
func (s *Service) BulkMark(ctx context.Context, classID, instructorID string, entries []BulkEntry) (BulkResult, error) {
	return s.bulk(ctx, classID, instructorID, len(entries), func(i int) (BulkEntry, error) {
		return entries[i], nil
	})
}

// BulkMarkJSON is BulkMark for undecoded entries. An entry that does not
// decode is reported like any other invalid entry.
func (s *Service) BulkMarkJSON(ctx context.Context, classID, instructorID string, raw []stdjson.RawMessage) (BulkResult, error) {
	return s.bulk(ctx, classID, instructorID, len(raw), func(i int) (BulkEntry, error) {
		var entry BulkEntry
		if err := json.Unmarshal(raw[i], &entry); err != nil {
			return BulkEntry{}, fmt.Errorf("malformed entry: %w", err)
		}
		return entry, nil
	})
}

func (s *Service) bulk(ctx context.Context, classID, instructorID string, n int, entryAt func(i int) (BulkEntry, error)) (BulkResult, error) {
	class, err := s.ClassForTeacher(ctx, classID, instructorID)
	if err != nil {
		return BulkResult{}, err
	}
	classroom, err := s.dir.GetClassroom(ctx, class.ClassroomID)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{Errors: []EntryError{}}
	for i := 0; i < n; i++ {
		entry, err := entryAt(i)
		if err != nil {
			res.Errors = append(res.Errors, EntryError{Index: i, Error: err.Error()})
			continue
		}
		if err := s.validate.Struct(entry); err != nil {
			res.Errors = append(res.Errors, EntryError{Index: i, StudentID: entry.StudentID, Error: err.Error()})
			continue
		}
		_, created, err := s.markByTeacher(ctx, class, classroom, entry, instructorID)
		if err != nil {
			res.Errors = append(res.Errors, EntryError{Index: i, StudentID: entry.StudentID, Error: err.Error()})
			continue
		}
		if created {
			res.UpsertedCount++
		} else {
			res.ModifiedCount++
		}
	}

	s.log.WithFields(logrus.Fields{
		"class_id":  classID,
		"upserted":  res.UpsertedCount,
		"modified":  res.ModifiedCount,
		"failed":    len(res.Errors),
		"submitted": n,
	}).Info("bulk attendance applied")
	return res, nil
}

func (s *Service) markByTeacher(ctx context.Context, class *directory.Class, classroom *directory.Classroom, entry BulkEntry, instructorID string) (Record, bool, error) {
	if !entry.Status.Valid() {
		return Record{}, false, ErrInvalidStatus
	}
	if !classroom.HasStudent(entry.StudentID) {
		return Record{}, false, ErrStudentNotInClassroom
	}

	prev, err := s.repo.Get(ctx, class.ID, entry.StudentID, class.ClassroomID)
	if err != nil {
		return Record{}, false, err
	}
	notes := entry.Notes
	if notes == "" && prev != nil {
		notes = overwriteNote(prev)
	}

	by := instructorID
	rec := Record{
		ClassID:      class.ID,
		ClassroomID:  class.ClassroomID,
		StudentID:    entry.StudentID,
		Status:       entry.Status,
		MarkedBy:     MarkedByTeacher,
		MarkedByUser: &by,
		MarkedAt:     s.now().UTC(),
		Notes:        notes,
	}
	if prev != nil {
		rec.Location = prev.Location
		rec.FaceRecognized = prev.FaceRecognized
		rec.MatchedEmbeddingID = prev.MatchedEmbeddingID
		rec.Similarity = prev.Similarity
	}
	saved, err := s.write(ctx, prev, rec, instructorID)
	return saved, prev == nil, err
}

func overwriteNote(prev *Record) string {
	by := string(prev.MarkedBy)
	if prev.MarkedByUser != nil && *prev.MarkedByUser != "" {
		by += " " + *prev.MarkedByUser
	}
	return fmt.Sprintf("previously marked as %s by %s at %s", prev.Status, by, prev.MarkedAt.UTC().Format(time.RFC3339))
}

func (s *Service) write(ctx context.Context, prev *Record, rec Record, actor string) (Record, error) {
	saved, created, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	outcome := "updated"
	if created {
		outcome = "created"
	}
	metrics.RecordWrites.WithLabelValues(string(saved.MarkedBy), outcome).Inc()

	s.log.WithFields(logrus.Fields{
		"record_id":  saved.ID,
		"class_id":   saved.ClassID,
		"student_id": saved.StudentID,
		"status":     saved.Status,
		"marked_by":  saved.MarkedBy,
		"outcome":    outcome,
	}).Info("attendance recorded")

	if s.changes != nil {
		change := audit.Change{
			RecordID:    saved.ID,
			ClassID:     saved.ClassID,
			ClassroomID: saved.ClassroomID,
			StudentID:   saved.StudentID,
			Status:      string(saved.Status),
			MarkedBy:    string(saved.MarkedBy),
			Actor:       actor,
			OccurredAt:  saved.MarkedAt,
		}
		if prev != nil {
			change.PreviousStatus = string(prev.Status)
			change.PreviousMarkedBy = string(prev.MarkedBy)
		}
		if err := s.changes.Notify(ctx, change); err != nil {
			s.log.WithFields(logrus.Fields{"record_id": saved.ID, "error": err.Error()}).Warn("audit change not published")
		}
	}
	return saved, nil
}

// ClassAttendance merges the classroom roster with stored records. Students
// without a record are reported absent by the system; nothing is stored for
// them.
func (s *Service) ClassAttendance(ctx context.Context, classID string) (ClassAttendance, error) {
	class, err := s.dir.GetClass(ctx, classID)
	if err != nil {
		return ClassAttendance{}, err
	}
	classroom, err := s.dir.GetClassroom(ctx, class.ClassroomID)
	if err != nil {
		return ClassAttendance{}, err
	}
	records, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return ClassAttendance{}, err
	}
	byStudent := make(map[string]Record, len(records))
	for _, r := range records {
		if r.ClassroomID == class.ClassroomID {
			byStudent[r.StudentID] = r
		}
	}

	profiles, err := s.dir.ListProfiles(ctx, classroom.StudentIDs)
	if err != nil {
		s.log.WithFields(logrus.Fields{"class_id": classID, "error": err.Error()}).Warn("profiles unavailable for roster")
		profiles = nil
	}

	out := ClassAttendance{
		ClassID:     class.ID,
		ClassroomID: class.ClassroomID,
		Students:    make([]StudentAttendance, 0, len(classroom.StudentIDs)),
	}
	for _, studentID := range classroom.StudentIDs {
		line := StudentAttendance{StudentID: studentID, Status: StatusAbsent, MarkedBy: MarkedBySystem}
		if p, ok := profiles[studentID]; ok {
			line.Name = p.Name
			line.Email = p.Email
		}
		if r, ok := byStudent[studentID]; ok {
			markedAt := r.MarkedAt
			line.Status = r.Status
			line.MarkedBy = r.MarkedBy
			line.MarkedByUser = r.MarkedByUser
			line.MarkedAt = &markedAt
			line.FaceRecognized = r.FaceRecognized
			line.Notes = r.Notes
			line.Recorded = true
		}
		out.Summary.add(line.Status)
		out.Students = append(out.Students, line)
	}
	return out, nil
}
