package collection

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// Index is the part of the vector index the manager needs.
type Index interface {
	Collection(ctx context.Context, name string) (point.CollectionInfo, error)
	CreateCollection(ctx context.Context, spec point.CollectionSpec) error
}

// FieldIndexer is implemented by backends that index payload fields apart from
// creating the collection, so a collection can exist with indexes missing.
type FieldIndexer interface {
	EnsureFieldIndexes(ctx context.Context, spec point.CollectionSpec) error
}
