package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"classattend/internal/geo"
)

// Repository persists attendance records. Upsert reports whether the row
// was created rather than overwritten.
type Repository interface {
	Upsert(ctx context.Context, rec Record) (Record, bool, error)
	Get(ctx context.Context, classID, studentID, classroomID string) (*Record, error)
	ListByClass(ctx context.Context, classID string) ([]Record, error)
}

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB, log *logrus.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

type recordRow struct {
	ID                 string     `db:"id"`
	ClassID            string     `db:"class_id"`
	ClassroomID        string     `db:"classroom_id"`
	StudentID          string     `db:"student_id"`
	Status             string     `db:"status"`
	MarkedBy           string     `db:"marked_by"`
	MarkedByUser       *string    `db:"marked_by_user"`
	MarkedAt           time.Time  `db:"marked_at"`
	LocationLat        *float64   `db:"location_lat"`
	LocationLng        *float64   `db:"location_lng"`
	LocationAccuracy   *float64   `db:"location_accuracy"`
	LocationAt         *time.Time `db:"location_at"`
	FaceRecognized     bool       `db:"face_recognized"`
	MatchedEmbeddingID *string    `db:"matched_embedding_id"`
	Similarity         *float64   `db:"similarity"`
	Notes              string     `db:"notes"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func toRow(r Record) recordRow {
	row := recordRow{
		ID:                 r.ID,
		ClassID:            r.ClassID,
		ClassroomID:        r.ClassroomID,
		StudentID:          r.StudentID,
		Status:             string(r.Status),
		MarkedBy:           string(r.MarkedBy),
		MarkedByUser:       r.MarkedByUser,
		MarkedAt:           r.MarkedAt,
		FaceRecognized:     r.FaceRecognized,
		MatchedEmbeddingID: r.MatchedEmbeddingID,
		Similarity:         r.Similarity,
		Notes:              r.Notes,
	}
	if r.Location != nil {
		row.LocationLat = r.Location.Latitude
		row.LocationLng = r.Location.Longitude
		row.LocationAccuracy = r.Location.Accuracy
		row.LocationAt = r.Location.Timestamp
	}
	return row
}

func (row recordRow) toModel() Record {
	rec := Record{
		ID:                 row.ID,
		ClassID:            row.ClassID,
		ClassroomID:        row.ClassroomID,
		StudentID:          row.StudentID,
		Status:             Status(row.Status),
		MarkedBy:           MarkedBy(row.MarkedBy),
		MarkedByUser:       row.MarkedByUser,
		MarkedAt:           row.MarkedAt,
		FaceRecognized:     row.FaceRecognized,
		MatchedEmbeddingID: row.MatchedEmbeddingID,
		Similarity:         row.Similarity,
		Notes:              row.Notes,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.LocationLat != nil || row.LocationLng != nil {
		rec.Location = &geo.Fix{
			Coordinates: geo.Coordinates{Latitude: row.LocationLat, Longitude: row.LocationLng},
			Accuracy:    row.LocationAccuracy,
			Timestamp:   row.LocationAt,
		}
	}
	return rec
}

const selectRecord = `
	SELECT id, class_id, classroom_id, student_id, status, marked_by, marked_by_user, marked_at,
		location_lat, location_lng, location_accuracy, location_at, face_recognized,
		matched_embedding_id, similarity, notes, created_at, updated_at
	FROM attendance_records`

// Upsert writes rec keyed by (class, student, classroom); an existing row is
// overwritten in place and keeps its id.
func (r *PostgresRepository) Upsert(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rows, err := r.db.NamedQueryContext(ctx, `
		INSERT INTO attendance_records (id, class_id, classroom_id, student_id, status, marked_by,
			marked_by_user, marked_at, location_lat, location_lng, location_accuracy, location_at,
			face_recognized, matched_embedding_id, similarity, notes)
		VALUES (:id, :class_id, :classroom_id, :student_id, :status, :marked_by,
			:marked_by_user, :marked_at, :location_lat, :location_lng, :location_accuracy, :location_at,
			:face_recognized, :matched_embedding_id, :similarity, :notes)
		ON CONFLICT (class_id, student_id, classroom_id) DO UPDATE SET
			status = EXCLUDED.status,
			marked_by = EXCLUDED.marked_by,
			marked_by_user = EXCLUDED.marked_by_user,
			marked_at = EXCLUDED.marked_at,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			location_accuracy = EXCLUDED.location_accuracy,
			location_at = EXCLUDED.location_at,
			face_recognized = EXCLUDED.face_recognized,
			matched_embedding_id = EXCLUDED.matched_embedding_id,
			similarity = EXCLUDED.similarity,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, toRow(rec))
	if err != nil {
		return Record{}, false, fmt.Errorf("upsert attendance: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, false, fmt.Errorf("upsert attendance: %w", err)
		}
		return Record{}, false, errors.New("upsert attendance: no row returned")
	}
	var inserted bool
	if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &inserted); err != nil {
		return Record{}, false, fmt.Errorf("upsert attendance: %w", err)
	}
	r.log.WithFields(logrus.Fields{
		"record_id":  rec.ID,
		"class_id":   rec.ClassID,
		"student_id": rec.StudentID,
		"inserted":   inserted,
	}).Debug("attendance upserted")
	return rec, inserted, nil
}

// Get returns the record or nil when none exists.
func (r *PostgresRepository) Get(ctx context.Context, classID, studentID, classroomID string) (*Record, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, selectRecord+`
		WHERE class_id = $1 AND student_id = $2 AND classroom_id = $3
	`, classID, studentID, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	rec := row.toModel()
	return &rec, nil
}

// ListByClass returns every stored record of the class.
func (r *PostgresRepository) ListByClass(ctx context.Context, classID string) ([]Record, error) {
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, selectRecord+` WHERE class_id = $1 ORDER BY student_id`, classID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
