// Package point defines what the vector index stores and returns.
package point

import (
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// Payload keys every point carries.
const (
	FieldTenantID  = filter.TenantField
	FieldKind      = "kind"
	FieldEntityKey = "entity_key"
)

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Candidate is a scored point returned by a similarity search.
type Candidate struct {
	ID      string
	Kind    kind.Kind
	Score   float64
	Payload map[string]any
}

// SearchRequest is a KNN query against one collection.
type SearchRequest struct {
	Vector []float32
	Filter filter.Expression
	Limit  int
}

// Selector picks points for deletion. IDs and Filter combine with AND.
type Selector struct {
	IDs    []string
	Filter filter.Expression
}

// IsEmpty reports whether the selector matches nothing explicitly.
func (s Selector) IsEmpty() bool { return len(s.IDs) == 0 && s.Filter.IsEmpty() }

// String returns a payload value as a string, or "" when absent or not a string.
func String(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
