package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals input rejected before any network call. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamUnavailable signals that the embedding service or the vector index failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrEmptyText signals an entity or query without embeddable text.
	ErrEmptyText = fmt.Errorf("%w: empty embeddable text", ErrValidation)
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrValidation)
	// ErrUnknownKind signals an unsupported content kind.
	ErrUnknownKind = fmt.Errorf("%w: unknown content kind", ErrValidation)
	// ErrTenantRequired signals a call without a tenant scope.
	ErrTenantRequired = fmt.Errorf("%w: tenant id is required", ErrValidation)
	// ErrKeyRequired signals an entity without its identifying field.
	ErrKeyRequired = fmt.Errorf("%w: entity key is required", ErrValidation)
	// ErrInvalidFilter signals a filter on a field the collection cannot filter by.
	ErrInvalidFilter = fmt.Errorf("%w: invalid filter", ErrValidation)

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = fmt.Errorf("embedding provider error: %w", ErrUpstreamUnavailable)
	// ErrIndexUnavailable signals a vector index failure.
	ErrIndexUnavailable = fmt.Errorf("vector index error: %w", ErrUpstreamUnavailable)
	// ErrCollectionUnavailable signals a collection that could not be ensured.
	ErrCollectionUnavailable = fmt.Errorf("collection unavailable: %w", ErrUpstreamUnavailable)

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// VectorDimError wraps ErrVectorDimMismatch with the expected and actual lengths.
type VectorDimError struct {
	Expected int
	Got      int
}

func (e *VectorDimError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Expected, e.Got)
}

func (e *VectorDimError) Unwrap() error { return ErrVectorDimMismatch }

// NewVectorDimError creates a dimension mismatch error.
func NewVectorDimError(expected, got int) error {
	return &VectorDimError{Expected: expected, Got: got}
}

// CheckDim returns a VectorDimError when len(vec) differs from dim.
func CheckDim(vec []float32, dim int) error {
	if len(vec) != dim {
		return NewVectorDimError(dim, len(vec))
	}
	return nil
}
