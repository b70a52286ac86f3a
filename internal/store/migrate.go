package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Schema returns the DDL for every table the service reads or writes. The
// directory tables mirror data owned by other services.
func Schema(embeddingDim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS classrooms (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS classroom_students (
			classroom_id TEXT NOT NULL REFERENCES classrooms(id) ON DELETE CASCADE,
			student_id   TEXT NOT NULL,
			PRIMARY KEY (classroom_id, student_id)
		)`,
		`CREATE TABLE IF NOT EXISTS classes (
			id              TEXT PRIMARY KEY,
			classroom_id    TEXT NOT NULL REFERENCES classrooms(id),
			teacher_id      TEXT NOT NULL,
			title           TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'scheduled',
			recurring       BOOLEAN NOT NULL DEFAULT FALSE,
			weekdays        INT[],
			start_time      TEXT,
			date            DATE,
			location_lat    DOUBLE PRECISION,
			location_long   DOUBLE PRECISION,
			location_radius DOUBLE PRECISION,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			name    TEXT NOT NULL DEFAULT '',
			email   TEXT,
			role    TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_embeddings (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, embeddingDim),
		`CREATE INDEX IF NOT EXISTS face_embeddings_user_active ON face_embeddings (user_id) WHERE active`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id                   TEXT PRIMARY KEY,
			class_id             TEXT NOT NULL,
			classroom_id         TEXT NOT NULL,
			student_id           TEXT NOT NULL,
			status               TEXT NOT NULL,
			marked_by            TEXT NOT NULL,
			marked_by_user       TEXT,
			marked_at            TIMESTAMPTZ NOT NULL,
			location_lat         DOUBLE PRECISION,
			location_lng         DOUBLE PRECISION,
			location_accuracy    DOUBLE PRECISION,
			location_at          TIMESTAMPTZ,
			face_recognized      BOOLEAN NOT NULL DEFAULT FALSE,
			matched_embedding_id TEXT,
			similarity           DOUBLE PRECISION,
			notes                TEXT NOT NULL DEFAULT '',
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (class_id, student_id, classroom_id)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_audit (
			id                 TEXT PRIMARY KEY,
			record_id          TEXT NOT NULL,
			class_id           TEXT NOT NULL,
			classroom_id       TEXT NOT NULL,
			student_id         TEXT NOT NULL,
			previous_status    TEXT NOT NULL DEFAULT '',
			previous_marked_by TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			marked_by          TEXT NOT NULL,
			actor              TEXT NOT NULL,
			occurred_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS attendance_audit_class ON attendance_audit (class_id, occurred_at)`,
	}
}

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, db *sqlx.DB, embeddingDim int, log *logrus.Logger) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range Schema(embeddingDim) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	log.WithField("embedding_dim", embeddingDim).Info("schema migrated")
	return nil
}
