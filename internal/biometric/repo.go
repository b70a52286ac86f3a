package biometric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// Store persists face embeddings.
type Store interface {
	Source
	Create(ctx context.Context, emb FaceEmbedding) (FaceEmbedding, error)
	Get(ctx context.Context, id string) (*FaceEmbedding, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// Repository stores embeddings in Postgres using the pgvector extension.
type Repository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB, log *logrus.Logger) *Repository {
	return &Repository{db: db, log: log}
}

type embeddingRow struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Vector    pgvector.Vector `db:"embedding"`
	Active    bool            `db:"active"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r embeddingRow) toModel() FaceEmbedding {
	return FaceEmbedding{
		ID:        r.ID,
		UserID:    r.UserID,
		Vector:    Embedding(r.Vector.Slice()),
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
}

const selectEmbedding = `SELECT id, user_id, embedding, active, created_at FROM face_embeddings`

// Create inserts a new embedding.
func (r *Repository) Create(ctx context.Context, emb FaceEmbedding) (FaceEmbedding, error) {
	if emb.ID == "" {
		emb.ID = uuid.NewString()
	}
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO face_embeddings (id, user_id, embedding, active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, emb.ID, emb.UserID, pgvector.NewVector(emb.Vector), emb.Active)
	if err := row.Scan(&emb.CreatedAt); err != nil {
		return FaceEmbedding{}, fmt.Errorf("insert embedding: %w", err)
	}
	return emb, nil
}

// Get returns an embedding by id, nil if not found.
func (r *Repository) Get(ctx context.Context, id string) (*FaceEmbedding, error) {
	var row embeddingRow
	err := r.db.GetContext(ctx, &row, selectEmbedding+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	emb := row.toModel()
	return &emb, nil
}

// SetActive toggles the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE face_embeddings SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEmbeddingNotFound
	}
	return nil
}

// ListActiveByUser returns the active embeddings of one user.
func (r *Repository) ListActiveByUser(ctx context.Context, userID string) ([]FaceEmbedding, error) {
	return r.list(ctx, selectEmbedding+` WHERE user_id = $1 AND active ORDER BY created_at`, userID)
}

// ListActive returns every active embedding.
func (r *Repository) ListActive(ctx context.Context) ([]FaceEmbedding, error) {
	return r.list(ctx, selectEmbedding+` WHERE active ORDER BY created_at`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]FaceEmbedding, error) {
	var rows []embeddingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	out := make([]FaceEmbedding, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	r.log.WithField("count", len(out)).Debug("loaded candidate embeddings")
	return out, nil
}
