package point

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// FieldType is the index type of a filterable payload field.
type FieldType int

const (
	// FieldKeyword is an exact-match string field.
	FieldKeyword FieldType = iota
	// FieldNumeric is a range-filterable number field.
	FieldNumeric
)

// FieldSpec declares a payload key the index must filter on natively.
type FieldSpec struct {
	Name string
	Type FieldType
}

// CollectionSpec describes a collection to ensure. The metric is always cosine.
type CollectionSpec struct {
	Name      string
	Kind      kind.Kind
	Dimension int
	Fields    []FieldSpec
}

// Filterable returns the set of filterable field names, tenant id included.
func (s CollectionSpec) Filterable() map[string]bool {
	out := make(map[string]bool, len(s.Fields)+1)
	out[FieldTenantID] = true
	for _, f := range s.Fields {
		out[f.Name] = true
	}
	return out
}

// CollectionInfo is what a backend reports about an existing collection.
// Dimension is 0 when the backend cannot tell.
type CollectionInfo struct {
	Name      string
	Dimension int
}

// Index is the vector index contract both backends implement.
type Index interface {
	Collection(ctx context.Context, name string) (CollectionInfo, error)
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, req SearchRequest) ([]Candidate, error)
	Delete(ctx context.Context, collection string, sel Selector) error
	Ping(ctx context.Context) error
}
