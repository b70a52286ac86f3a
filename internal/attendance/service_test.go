package attendance

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"classattend/internal/apperr"
	"classattend/internal/audit"
	"classattend/internal/biometric"
	"classattend/internal/directory"
	"classattend/internal/geo"
	"classattend/internal/logger"
	"classattend/internal/window"
)

func f(v float64) *float64 { return &v }

func fix(lat, lon float64) *geo.Fix {
	return &geo.Fix{Coordinates: geo.Coordinates{Latitude: f(lat), Longitude: f(lon)}}
}

var (
	// Roughly 55 m and 111 m east of the class at (0, 0).
	nearby  = fix(0, 0.0005)
	faraway = fix(0, 0.001)

	ownFace   = biometric.Embedding{1, 0}
	otherFace = biometric.Embedding{0, 1}
)

type recordedChanges struct {
	mu      sync.Mutex
	changes []audit.Change
}

func (r *recordedChanges) Notify(_ context.Context, c audit.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	dir     *directory.Memory
	windows *window.Controller
	changes *recordedChanges
	now     time.Time
}

func (fx *fixture) clock() time.Time { return fx.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, time.UTC)
}

func newFixtureIn(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	ctx := context.Background()

	session := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	dir := directory.NewMemory()
	dir.PutClassroom(directory.Classroom{ID: "room-1", StudentIDs: []string{"s1", "s2", "s3"}})
	dir.PutClassroom(directory.Classroom{ID: "room-2", StudentIDs: []string{"s9"}})
	dir.PutClass(directory.Class{
		ID:          "c1",
		ClassroomID: "room-1",
		TeacherID:   "t1",
		Schedule:    directory.Schedule{StartTime: "08:00", Date: &session},
		Location:    &geo.Site{Coordinates: geo.Coordinates{Latitude: f(0), Longitude: f(0)}},
	})
	dir.PutClass(directory.Class{ID: "c2", ClassroomID: "room-2", TeacherID: "t2"})
	dir.PutProfile(directory.Profile{UserID: "s1", Name: "Ana"})

	faces := biometric.NewMemoryStore()
	if _, err := faces.Create(ctx, biometric.FaceEmbedding{UserID: "s1", Vector: ownFace, Active: true}); err != nil {
		t.Fatal(err)
	}

	fx := &fixture{
		repo:    NewMemoryRepository(),
		dir:     dir,
		changes: &recordedChanges{},
		now:     time.Date(2026, 10, 15, 8, 5, 0, 0, time.UTC),
	}
	fx.windows = window.NewController(window.NewMemoryStore(), dir, logger.Discard())
	fx.windows.SetClock(fx.clock)

	fx.svc = NewService(Deps{
		Repo:      fx.repo,
		Directory: dir,
		Windows:   fx.windows,
		Faces:     biometric.NewMatcher(faces, biometric.Thresholds{Verify: 0.90, Identify: 0.20}),
		Proximity: geo.NewValidator(100, 0),
		Changes:   fx.changes,
		Log:       logger.Discard(),
	}, Options{EmbeddingDim: 2, LateGrace: 15 * time.Minute, Location: loc})
	fx.svc.SetClock(fx.clock)

	if _, err := fx.windows.Open(ctx, "c1", "t1", nil); err != nil {
		t.Fatal(err)
	}
	return fx
}

func TestMarkSelf_Decision(t *testing.T) {
	tests := []struct {
		name         string
		embedding    biometric.Embedding
		location     *geo.Fix
		wantMarkedBy MarkedBy
		wantFace     bool
		wantFailure  bool
	}{
		{"face passes, location fails", ownFace, faraway, MarkedByFacialRecognition, true, false},
		{"face fails, location passes", otherFace, nearby, MarkedByLocation, false, false},
		{"both pass prefers face", ownFace, nearby, MarkedByFacialRecognition, true, false},
		{"face only", ownFace, nil, MarkedByFacialRecognition, true, false},
		{"location only", nil, nearby, MarkedByLocation, false, false},
		{"both fail", otherFace, faraway, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			rec, err := fx.svc.MarkSelf(context.Background(), SelfMark{
				ClassroomID: "room-1", ClassID: "c1", StudentID: "s1",
				Embedding: tt.embedding, Location: tt.location,
			})

			if tt.wantFailure {
				var vf *VerificationFailure
				if !errors.As(err, &vf) {
					t.Fatalf("err = %v, want *VerificationFailure", err)
				}
				if apperr.Status(err) != http.StatusUnprocessableEntity {
					t.Errorf("status = %d, want 422", apperr.Status(err))
				}
				if vf.Similarity == nil || vf.DistanceMeters == nil {
					t.Errorf("failure should carry similarity and distance: %+v", vf)
				}
				if fx.repo.Len() != 0 {
					t.Errorf("no record may be written on failure, got %d", fx.repo.Len())
				}
				return
			}

			if err != nil {
				t.Fatalf("MarkSelf() error: %v", err)
			}
			if rec.MarkedBy != tt.wantMarkedBy {
				t.Errorf("MarkedBy = %s, want %s", rec.MarkedBy, tt.wantMarkedBy)
			}
			if rec.FaceRecognized != tt.wantFace {
				t.Errorf("FaceRecognized = %v, want %v", rec.FaceRecognized, tt.wantFace)
			}
			if rec.Status != StatusPresent {
				t.Errorf("Status = %s, want present", rec.Status)
			}
			if tt.wantFace && rec.MatchedEmbeddingID == nil {
				t.Error("matched embedding id missing")
			}
			if tt.location != nil && rec.Location == nil {
				t.Error("location snapshot missing")
			}
		})
	}
}

func TestMarkSelf_SecondMarkOverwrites(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby})
	if err != nil {
		t.Fatal(err)
	}
	fx.now = fx.now.Add(time.Minute)
	second, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Embedding: ownFace})
	if err != nil {
		t.Fatal(err)
	}

	if fx.repo.Len() != 1 {
		t.Fatalf("stored records = %d, want 1", fx.repo.Len())
	}
	if second.ID != first.ID {
		t.Errorf("second mark created a new record: %s != %s", second.ID, first.ID)
	}
	stored, _ := fx.repo.Get(ctx, "c1", "s1", "room-1")
	if stored.MarkedBy != MarkedByFacialRecognition || stored.Location != nil {
		t.Errorf("stored record not replaced: %+v", stored)
	}

	if len(fx.changes.changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(fx.changes.changes))
	}
	if c := fx.changes.changes[1]; c.PreviousMarkedBy != string(MarkedByLocation) || c.MarkedBy != string(MarkedByFacialRecognition) {
		t.Errorf("second change = %+v", c)
	}
}

func TestMarkSelf_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		in      SelfMark
		setup   func(fx *fixture)
		wantErr error
	}{
		{
			name:    "missing classroom",
			in:      SelfMark{ClassroomID: "nope", ClassID: "c1", StudentID: "s1", Location: nearby},
			wantErr: directory.ErrClassroomNotFound,
		},
		{
			name:    "student not assigned",
			in:      SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s9", Location: nearby},
			wantErr: ErrStudentNotInClassroom,
		},
		{
			name: "window closed",
			in:   SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby},
			setup: func(fx *fixture) {
				if _, err := fx.windows.Close(context.Background(), "c1"); err != nil {
					panic(err)
				}
			},
			wantErr: window.ErrWindowNotOpen,
		},
		{
			name:    "window never opened",
			in:      SelfMark{ClassroomID: "room-2", ClassID: "c2", StudentID: "s9", Location: nearby},
			wantErr: window.ErrWindowNotOpen,
		},
		{
			name:    "class of another classroom",
			in:      SelfMark{ClassroomID: "room-2", ClassID: "c1", StudentID: "s9", Location: nearby},
			wantErr: ErrClassNotInClassroom,
		},
		{
			name:    "no evidence",
			in:      SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1"},
			wantErr: ErrNoEvidence,
		},
		{
			name:    "incomplete location",
			in:      SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: &geo.Fix{Coordinates: geo.Coordinates{Latitude: f(0)}}},
			wantErr: ErrIncompleteLocation,
		},
		{
			name:    "wrong embedding dimension",
			in:      SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Embedding: biometric.Embedding{1, 0, 0}},
			wantErr: biometric.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			if tt.setup != nil {
				tt.setup(fx)
			}
			_, err := fx.svc.MarkSelf(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if fx.repo.Len() != 0 {
				t.Errorf("records written on rejection: %d", fx.repo.Len())
			}
		})
	}
}

func TestMarkSelf_WindowExpiresLazily(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	ten := 10
	if _, err := fx.windows.Open(ctx, "c1", "t1", &ten); err != nil {
		t.Fatal(err)
	}

	fx.now = fx.now.Add(9 * time.Minute)
	if _, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby}); err != nil {
		t.Fatalf("mark inside window: %v", err)
	}
	fx.now = fx.now.Add(2 * time.Minute)
	if _, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s2", Location: nearby}); !errors.Is(err, window.ErrWindowNotOpen) {
		t.Errorf("mark after expiry = %v, want ErrWindowNotOpen", err)
	}
}

func TestMarkSelf_Lateness(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		schedule directory.Schedule
		at       time.Time
		want     Status
	}{
		{"one-off within grace", directory.Schedule{StartTime: "08:00", Date: ptrTime(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))}, at(8, 15), StatusPresent},
		{"one-off past grace", directory.Schedule{StartTime: "08:00", Date: ptrTime(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))}, at(8, 16), StatusLate},
		{"recurring past grace", directory.Schedule{Recurring: true, Weekdays: []time.Weekday{time.Thursday}, StartTime: "08:00"}, at(8, 30), StatusLate},
		{"recurring early", directory.Schedule{Recurring: true, Weekdays: []time.Weekday{time.Thursday}, StartTime: "08:00"}, at(7, 55), StatusPresent},
		{"recurring other weekday", directory.Schedule{Recurring: true, Weekdays: []time.Weekday{time.Monday}, StartTime: "08:00"}, at(11, 0), StatusPresent},
		{"no start time", directory.Schedule{}, at(23, 0), StatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			class, _ := fx.dir.GetClass(ctx, "c1")
			class.Schedule = tt.schedule
			fx.dir.PutClass(*class)
			fx.now = tt.at

			rec, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby})
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != tt.want {
				t.Errorf("Status = %s, want %s", rec.Status, tt.want)
			}
		})
	}
}

func TestMarkSelf_LatenessInLocation(t *testing.T) {
	ctx := context.Background()
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	// Stored the way a DATE column scans: midnight UTC.
	session := ptrTime(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	thursdays := []time.Weekday{time.Thursday}

	tests := []struct {
		name     string
		loc      *time.Location
		schedule directory.Schedule
		at       time.Time
		want     Status
	}{
		{"new york one-off within grace", newYork, directory.Schedule{StartTime: "09:00", Date: session}, time.Date(2026, 10, 15, 9, 5, 0, 0, newYork), StatusPresent},
		{"new york one-off past grace", newYork, directory.Schedule{StartTime: "09:00", Date: session}, time.Date(2026, 10, 15, 9, 20, 0, 0, newYork), StatusLate},
		{"new york recurring within grace", newYork, directory.Schedule{Recurring: true, Weekdays: thursdays, StartTime: "09:00"}, time.Date(2026, 10, 15, 9, 10, 0, 0, newYork), StatusPresent},
		{"new york recurring evening, already friday in utc", newYork, directory.Schedule{Recurring: true, Weekdays: thursdays, StartTime: "20:30"}, time.Date(2026, 10, 15, 21, 0, 0, 0, newYork), StatusLate},
		{"tokyo one-off within grace", tokyo, directory.Schedule{StartTime: "09:00", Date: session}, time.Date(2026, 10, 15, 9, 5, 0, 0, tokyo), StatusPresent},
		{"tokyo one-off past grace", tokyo, directory.Schedule{StartTime: "09:00", Date: session}, time.Date(2026, 10, 15, 9, 20, 0, 0, tokyo), StatusLate},
		{"tokyo recurring morning, still wednesday in utc", tokyo, directory.Schedule{Recurring: true, Weekdays: thursdays, StartTime: "08:00"}, time.Date(2026, 10, 15, 8, 30, 0, 0, tokyo), StatusLate},
		{"tokyo recurring within grace", tokyo, directory.Schedule{Recurring: true, Weekdays: thursdays, StartTime: "08:00"}, time.Date(2026, 10, 15, 8, 10, 0, 0, tokyo), StatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixtureIn(t, tt.loc)
			class, _ := fx.dir.GetClass(ctx, "c1")
			class.Schedule = tt.schedule
			fx.dir.PutClass(*class)
			fx.now = tt.at

			rec, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby})
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != tt.want {
				t.Errorf("Status = %s, want %s", rec.Status, tt.want)
			}
		})
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 15, hour, minute, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestMarkManual_OverridesStudentMark(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	self, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Location: nearby})
	if err != nil {
		t.Fatal(err)
	}
	fx.now = fx.now.Add(30 * time.Minute)

	rec, err := fx.svc.MarkManual(ctx, ManualMark{ClassID: "c1", StudentID: "s1", Status: StatusAbsent, InstructorID: "t1"})
	if err != nil {
		t.Fatalf("MarkManual() error: %v", err)
	}
	if rec.Status != StatusAbsent || rec.MarkedBy != MarkedByTeacher {
		t.Errorf("got status %s by %s, want absent by teacher", rec.Status, rec.MarkedBy)
	}
	if rec.MarkedByUser == nil || *rec.MarkedByUser != "t1" {
		t.Errorf("MarkedByUser = %v, want t1", rec.MarkedByUser)
	}
	wantNote := "previously marked as present by location at " + self.MarkedAt.Format(time.RFC3339)
	if rec.Notes != wantNote {
		t.Errorf("Notes = %q, want %q", rec.Notes, wantNote)
	}
	if fx.repo.Len() != 1 {
		t.Errorf("stored records = %d, want 1", fx.repo.Len())
	}

	again, err := fx.svc.MarkManual(ctx, ManualMark{ClassID: "c1", StudentID: "s1", Status: StatusExcused, Notes: "doctor's note", InstructorID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Notes != "doctor's note" {
		t.Errorf("explicit notes replaced: %q", again.Notes)
	}
}

func TestMarkManual_FirstMarkHasNoAutoNote(t *testing.T) {
	fx := newFixture(t)
	rec, err := fx.svc.MarkManual(context.Background(), ManualMark{ClassID: "c1", StudentID: "s2", Status: StatusPresent, InstructorID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Notes != "" {
		t.Errorf("Notes = %q, want empty", rec.Notes)
	}
}

func TestMarkManual_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		in         ManualMark
		wantErr    error
		wantStatus int
	}{
		{"not the class teacher", ManualMark{ClassID: "c1", StudentID: "s1", Status: StatusPresent, InstructorID: "t2"}, ErrNotClassTeacher, http.StatusForbidden},
		{"student outside classroom", ManualMark{ClassID: "c1", StudentID: "s9", Status: StatusPresent, InstructorID: "t1"}, ErrStudentNotInClassroom, http.StatusForbidden},
		{"unknown status", ManualMark{ClassID: "c1", StudentID: "s1", Status: "maybe", InstructorID: "t1"}, ErrInvalidStatus, http.StatusBadRequest},
		{"missing class", ManualMark{ClassID: "zz", StudentID: "s1", Status: StatusPresent, InstructorID: "t1"}, directory.ErrClassNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			_, err := fx.svc.MarkManual(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if got := apperr.Status(err); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestBulkMark_IsolatesBadEntries(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.svc.BulkMark(ctx, "c1", "t1", []BulkEntry{
		{StudentID: "s1", Status: StatusPresent},
		{StudentID: "s2", Status: "sleeping"},
		{StudentID: "s3", Status: StatusLate, Notes: "bus"},
	})
	if err != nil {
		t.Fatalf("BulkMark() error: %v", err)
	}
	if res.UpsertedCount != 2 || res.ModifiedCount != 0 {
		t.Errorf("counts = %d upserted / %d modified, want 2 / 0", res.UpsertedCount, res.ModifiedCount)
	}
	if len(res.Errors) != 1 || res.Errors[0].Index != 1 || res.Errors[0].StudentID != "s2" {
		t.Fatalf("Errors = %+v, want one error for entry 1", res.Errors)
	}
	for _, id := range []string{"s1", "s3"} {
		if rec, _ := fx.repo.Get(ctx, "c1", id, "room-1"); rec == nil {
			t.Errorf("entry for %s not applied", id)
		}
	}
	if rec, _ := fx.repo.Get(ctx, "c1", "s2", "room-1"); rec != nil {
		t.Error("invalid entry must not be written")
	}

	res, err = fx.svc.BulkMark(ctx, "c1", "t1", []BulkEntry{
		{StudentID: "s1", Status: StatusAbsent},
		{StudentID: "s9", Status: StatusPresent},
		{Status: StatusPresent},
		{StudentID: "s2", Status: StatusExcused},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ModifiedCount != 1 || res.UpsertedCount != 1 || len(res.Errors) != 2 {
		t.Errorf("second batch = %+v", res)
	}
	s1, _ := fx.repo.Get(ctx, "c1", "s1", "room-1")
	if !strings.HasPrefix(s1.Notes, "previously marked as present by teacher t1") {
		t.Errorf("bulk overwrite note = %q", s1.Notes)
	}
}

func TestBulkMarkJSON_MalformedEntry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	res, err := fx.svc.BulkMarkJSON(ctx, "c1", "t1", []stdjson.RawMessage{
		stdjson.RawMessage(`{"student_id":"s1","status":"present"}`),
		stdjson.RawMessage(`{"student_id":42,"status":7}`),
		stdjson.RawMessage(`{"student_id":"s3","status":"late"}`),
	})
	if err != nil {
		t.Fatalf("BulkMarkJSON() error: %v", err)
	}
	if res.UpsertedCount != 2 {
		t.Errorf("UpsertedCount = %d, want 2", res.UpsertedCount)
	}
	if len(res.Errors) != 1 || res.Errors[0].Index != 1 {
		t.Fatalf("Errors = %+v, want one error for entry 1", res.Errors)
	}
	for _, id := range []string{"s1", "s3"} {
		if rec, _ := fx.repo.Get(ctx, "c1", id, "room-1"); rec == nil {
			t.Errorf("entry for %s not applied", id)
		}
	}
}

func TestBulkMark_RequiresTeacher(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.BulkMark(context.Background(), "c1", "t2", []BulkEntry{{StudentID: "s1", Status: StatusPresent}})
	if !errors.Is(err, ErrNotClassTeacher) {
		t.Errorf("err = %v, want ErrNotClassTeacher", err)
	}
	if fx.repo.Len() != 0 {
		t.Error("nothing may be written for a foreign teacher")
	}
}

func TestClassAttendance_MergesRoster(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	if _, err := fx.svc.MarkSelf(ctx, SelfMark{ClassroomID: "room-1", ClassID: "c1", StudentID: "s1", Embedding: ownFace}); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.svc.MarkManual(ctx, ManualMark{ClassID: "c1", StudentID: "s3", Status: StatusExcused, InstructorID: "t1"}); err != nil {
		t.Fatal(err)
	}

	got, err := fx.svc.ClassAttendance(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Students) != 3 {
		t.Fatalf("roster lines = %d, want 3", len(got.Students))
	}

	s1, s2, s3 := got.Students[0], got.Students[1], got.Students[2]
	if s1.Status != StatusPresent || s1.MarkedBy != MarkedByFacialRecognition || !s1.Recorded || s1.Name != "Ana" {
		t.Errorf("s1 = %+v", s1)
	}
	if s2.Status != StatusAbsent || s2.MarkedBy != MarkedBySystem || s2.Recorded || s2.MarkedAt != nil {
		t.Errorf("s2 = %+v, want absent system default", s2)
	}
	if s3.Status != StatusExcused {
		t.Errorf("s3 = %+v", s3)
	}

	want := Summary{Total: 3, Present: 1, Absent: 1, Excused: 1}
	if got.Summary != want {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want)
	}
	if fx.repo.Len() != 2 {
		t.Errorf("absence must not be stored, records = %d", fx.repo.Len())
	}
}
