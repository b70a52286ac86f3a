// Package identify answers "who is this" for an embedding without a claimed
// identity.
package identify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"classattend/internal/biometric"
	"classattend/internal/directory"
)

// Searcher runs the 1:N search.
type Searcher interface {
	Identify(ctx context.Context, query biometric.Embedding) (biometric.IdentifyResult, error)
}

// Profiles resolves matched users.
type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*directory.Profile, error)
}

// Result is an identification outcome. Similarity is the best score seen
// even when it fell below the threshold.
type Result struct {
	Matched     bool               `json:"matched"`
	UserID      string             `json:"user_id,omitempty"`
	EmbeddingID string             `json:"embedding_id,omitempty"`
	Similarity  float64            `json:"similarity"`
	Threshold   float64            `json:"threshold"`
	Profile     *directory.Profile `json:"profile,omitempty"`
}

// Service identifies faces.
type Service struct {
	search    Searcher
	profiles  Profiles
	dim       int
	threshold float64
	log       *logrus.Logger
}

// NewService creates a service. threshold is only reported back to callers;
// the decision is the searcher's.
func NewService(search Searcher, profiles Profiles, dim int, threshold float64, log *logrus.Logger) *Service {
	return &Service{search: search, profiles: profiles, dim: dim, threshold: threshold, log: log}
}

// Identify searches all active embeddings for query.
func (s *Service) Identify(ctx context.Context, query biometric.Embedding) (Result, error) {
	if err := query.Validate(s.dim); err != nil {
		return Result{}, err
	}
	found, err := s.search.Identify(ctx, query)
	if err != nil {
		if errors.Is(err, biometric.ErrDimensionMismatch) {
			// The query already matched the configured dim, so a stored vector is stale.
			s.log.WithField("error", err.Error()).Error("stored embedding does not match EMBEDDING_DIM")
		}
		return Result{}, err
	}

	res := Result{
		Matched:     found.Matched,
		UserID:      found.UserID,
		EmbeddingID: found.EmbeddingID,
		Similarity:  found.Similarity,
		Threshold:   s.threshold,
	}
	if !found.Matched {
		return res, nil
	}

	profile, err := s.profiles.GetProfile(ctx, found.UserID)
	switch {
	case err == nil:
		res.Profile = profile
	case errors.Is(err, directory.ErrProfileNotFound):
		s.log.WithField("user_id", found.UserID).Warn("identified user has no profile")
	default:
		return Result{}, err
	}
	return res, nil
}
