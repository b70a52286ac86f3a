package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"classattend/internal/geo"
)

// Repository reads directory data from Postgres tables kept in sync by the
// owning services.
type Repository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB, log *logrus.Logger) *Repository {
	return &Repository{db: db, log: log}
}

type classRow struct {
	ID             string          `db:"id"`
	ClassroomID    string          `db:"classroom_id"`
	TeacherID      string          `db:"teacher_id"`
	Title          string          `db:"title"`
	Status         string          `db:"status"`
	Recurring      bool            `db:"recurring"`
	Weekdays       pq.Int64Array   `db:"weekdays"`
	StartTime      sql.NullString  `db:"start_time"`
	Date           sql.NullTime    `db:"date"`
	LocationLat    sql.NullFloat64 `db:"location_lat"`
	LocationLong   sql.NullFloat64 `db:"location_long"`
	LocationRadius sql.NullFloat64 `db:"location_radius"`
}

func (r classRow) toModel() *Class {
	c := &Class{
		ID:          r.ID,
		ClassroomID: r.ClassroomID,
		TeacherID:   r.TeacherID,
		Title:       r.Title,
		Status:      ClassStatus(r.Status),
		Schedule: Schedule{
			Recurring: r.Recurring,
			StartTime: r.StartTime.String,
		},
	}
	for _, d := range r.Weekdays {
		c.Schedule.Weekdays = append(c.Schedule.Weekdays, time.Weekday(d))
	}
	if r.Date.Valid {
		d := r.Date.Time
		c.Schedule.Date = &d
	}
	if r.LocationLat.Valid && r.LocationLong.Valid {
		lat, long := r.LocationLat.Float64, r.LocationLong.Float64
		site := &geo.Site{Coordinates: geo.Coordinates{Latitude: &lat, Longitude: &long}}
		if r.LocationRadius.Valid {
			radius := r.LocationRadius.Float64
			site.RadiusMeters = &radius
		}
		c.Location = site
	}
	return c
}

// GetClass returns a class by id.
func (r *Repository) GetClass(ctx context.Context, classID string) (*Class, error) {
	var row classRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, classroom_id, teacher_id, title, status, recurring, COALESCE(weekdays, '{}')::text AS weekdays,
		       start_time, date,
		       location_lat, location_long, location_radius
		FROM classes WHERE id = $1
	`, classID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return row.toModel(), nil
}

// GetClassroom returns a classroom with its roster.
func (r *Repository) GetClassroom(ctx context.Context, classroomID string) (*Classroom, error) {
	var room struct {
		ID         string         `db:"id"`
		Name       string         `db:"name"`
		StudentIDs pq.StringArray `db:"student_ids"`
	}
	err := r.db.GetContext(ctx, &room, `
		SELECT c.id, c.name,
		       COALESCE(ARRAY(SELECT s.student_id::text FROM classroom_students s
		                      WHERE s.classroom_id = c.id ORDER BY s.student_id), '{}')::text AS student_ids
		FROM classrooms c WHERE c.id = $1
	`, classroomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClassroomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query classroom: %w", err)
	}
	return &Classroom{ID: room.ID, Name: room.Name, StudentIDs: []string(room.StudentIDs)}, nil
}

// SetClassStatus updates the class lifecycle status.
func (r *Repository) SetClassStatus(ctx context.Context, classID string, status ClassStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE classes SET status = $2, updated_at = NOW() WHERE id = $1`, classID, string(status))
	if err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClassNotFound
	}
	r.log.WithFields(logrus.Fields{"class_id": classID, "status": status}).Info("class status updated")
	return nil
}

// GetProfile returns a user profile.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRowxContext(ctx, `
		SELECT user_id, name, COALESCE(email, ''), role FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Name, &p.Email, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// ListProfiles returns the profiles of the given users, keyed by user id.
func (r *Repository) ListProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT user_id, name, COALESCE(email, ''), role FROM user_profiles WHERE user_id = ANY($1::text[])
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.Role); err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}
