package indexing

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// Embedder vectorizes texts in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Collections resolves and ensures the collection of a kind.
type Collections interface {
	Ensure(ctx context.Context, k kind.Kind) (point.CollectionSpec, error)
}

// Index is the write side of the vector index.
type Index interface {
	Upsert(ctx context.Context, collection string, points []point.Point) error
	Delete(ctx context.Context, collection string, sel point.Selector) error
}
