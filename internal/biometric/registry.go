package biometric

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Registry manages a user's enrolled embeddings.
type Registry struct {
	store Store
	dim   int
	log   *logrus.Logger
}

// NewRegistry creates a registry enforcing the given vector dimensionality.
func NewRegistry(store Store, dim int, log *logrus.Logger) *Registry {
	return &Registry{store: store, dim: dim, log: log}
}

// Enroll stores a new active embedding for userID.
func (r *Registry) Enroll(ctx context.Context, userID string, vec Embedding) (FaceEmbedding, error) {
	if err := vec.Validate(r.dim); err != nil {
		return FaceEmbedding{}, err
	}
	emb, err := r.store.Create(ctx, FaceEmbedding{UserID: userID, Vector: vec, Active: true})
	if err != nil {
		return FaceEmbedding{}, err
	}
	r.log.WithFields(logrus.Fields{"user_id": userID, "embedding_id": emb.ID}).Info("embedding enrolled")
	return emb, nil
}

// Deactivate soft-deletes an embedding owned by userID.
func (r *Registry) Deactivate(ctx context.Context, userID, id string) error {
	emb, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if emb == nil {
		return ErrEmbeddingNotFound
	}
	if emb.UserID != userID {
		return ErrNotEmbeddingOwner
	}
	if err := r.store.SetActive(ctx, id, false); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"user_id": userID, "embedding_id": id}).Info("embedding deactivated")
	return nil
}

// Dim returns the enforced dimensionality, 0 when unconstrained.
func (r *Registry) Dim() int {
	return r.dim
}
