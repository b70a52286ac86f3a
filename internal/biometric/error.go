package biometric

import "classattend/internal/apperr"

var (
	ErrDimensionMismatch  = apperr.Validation("embedding dimension mismatch")
	ErrEmptyEmbedding     = apperr.Validation("embedding is empty")
	ErrNonFiniteEmbedding = apperr.Validation("embedding contains non-finite values")
	ErrEmbeddingNotFound  = apperr.NotFound("embedding not found")
	ErrNotEmbeddingOwner  = apperr.Forbidden("embedding belongs to another user")
)
