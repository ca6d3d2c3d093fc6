package points

import (
	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// buildIndex maps a collection spec to an FT.CREATE definition.
// The vector is queried as @vector and the point id as @id.
func buildIndex(name, prefix string, spec point.CollectionSpec, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).
		Prefix(prefix).
		VectorHNSW(fieldVector, "vector", spec.Dimension, hnsw.M, hnsw.EFConstruct).
		TagAs(fieldID, "id").
		Tag(point.FieldTenantID)

	for _, f := range spec.Fields {
		if f.Name == point.FieldTenantID {
			continue
		}
		switch f.Type {
		case point.FieldNumeric:
			b.Numeric(f.Name)
		default:
			b.Tag(f.Name)
		}
	}
	return b.Build() //nolint:wrapcheck // caller wraps
}
