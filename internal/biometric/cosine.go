package biometric

import (
	"fmt"
	"math"
)

// CosineSimilarity returns dot(a,b)/(|a|·|b|), or 0 when either vector has
// zero magnitude. Vectors of different length are an error, never truncated.
func CosineSimilarity(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp float error.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// Match is the best candidate found for a query.
type Match struct {
	EmbeddingID string
	UserID      string
	Similarity  float64
}

// BestMatch scans candidates and returns the most similar one. ok is false
// when there are no candidates. Any dimension mismatch aborts the scan; the
// error names the stored embedding that caused it.
func BestMatch(query Embedding, candidates []FaceEmbedding) (best Match, ok bool, err error) {
	for _, c := range candidates {
		sim, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			return Match{}, false, fmt.Errorf("embedding %s (dim %d): %w", c.ID, len(c.Vector), err)
		}
		if !ok || sim > best.Similarity {
			best = Match{EmbeddingID: c.ID, UserID: c.UserID, Similarity: sim}
			ok = true
		}
	}
	return best, ok, nil
}
