package biometric

import (
	"context"

	"classattend/internal/metrics"
)

// Source supplies candidate embeddings.
type Source interface {
	ListActiveByUser(ctx context.Context, userID string) ([]FaceEmbedding, error)
	ListActive(ctx context.Context) ([]FaceEmbedding, error)
}

// Thresholds for the two matching modes.
type Thresholds struct {
	Verify   float64
	Identify float64
}

// VerifyResult is the outcome of a 1:1 check against a claimed identity.
type VerifyResult struct {
	Verified           bool    `json:"verified"`
	Similarity         float64 `json:"similarity"`
	MatchedEmbeddingID string  `json:"matched_embedding_id,omitempty"`
}

// IdentifyResult is the outcome of a 1:N search.
type IdentifyResult struct {
	Matched     bool    `json:"matched"`
	UserID      string  `json:"user_id,omitempty"`
	EmbeddingID string  `json:"embedding_id,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// Matcher compares query embeddings against stored ones.
type Matcher struct {
	src        Source
	thresholds Thresholds
}

// NewMatcher creates a matcher over src.
func NewMatcher(src Source, thresholds Thresholds) *Matcher {
	return &Matcher{src: src, thresholds: thresholds}
}

// Thresholds returns the configured thresholds.
func (m *Matcher) Thresholds() Thresholds {
	return m.thresholds
}

// Verify compares query against userID's active embeddings only.
func (m *Matcher) Verify(ctx context.Context, userID string, query Embedding) (VerifyResult, error) {
	candidates, err := m.src.ListActiveByUser(ctx, userID)
	if err != nil {
		return VerifyResult{}, err
	}
	best, ok, err := BestMatch(query, candidates)
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{Similarity: best.Similarity}
	if ok {
		res.MatchedEmbeddingID = best.EmbeddingID
		res.Verified = best.Similarity >= m.thresholds.Verify
		metrics.SimilarityScores.WithLabelValues("verify").Observe(best.Similarity)
	}
	metrics.MatchOutcomes.WithLabelValues("verify", metrics.Result(res.Verified)).Inc()
	return res, nil
}

// Identify searches every active embedding. The best score is reported even
// when it falls below the threshold.
func (m *Matcher) Identify(ctx context.Context, query Embedding) (IdentifyResult, error) {
	candidates, err := m.src.ListActive(ctx)
	if err != nil {
		return IdentifyResult{}, err
	}
	best, ok, err := BestMatch(query, candidates)
	if err != nil {
		return IdentifyResult{}, err
	}

	res := IdentifyResult{Similarity: best.Similarity}
	if ok {
		metrics.SimilarityScores.WithLabelValues("identify").Observe(best.Similarity)
		if best.Similarity >= m.thresholds.Identify {
			res.Matched = true
			res.UserID = best.UserID
			res.EmbeddingID = best.EmbeddingID
		}
	}
	metrics.MatchOutcomes.WithLabelValues("identify", metrics.Result(res.Matched)).Inc()
	return res, nil
}
