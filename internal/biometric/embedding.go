package biometric

import (
	"fmt"
	"math"
	"time"
)

// Embedding is a face vector produced by the capture client.
type Embedding []float32

// Validate checks the vector at the boundary: non-empty, finite and, when
// dim > 0, exactly dim components long.
func (e Embedding) Validate(dim int) error {
	if len(e) == 0 {
		return ErrEmptyEmbedding
	}
	if dim > 0 && len(e) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(e), dim)
	}
	for i, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d", ErrNonFiniteEmbedding, i)
		}
	}
	return nil
}

// FaceEmbedding is a stored embedding owned by a user.
type FaceEmbedding struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Vector    Embedding `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
