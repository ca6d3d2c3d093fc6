// Package pointid derives deterministic vector point identifiers.
package pointid

import (
	"github.com/google/uuid"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// Namespaces per content kind. Changing any of them orphans every stored point.
var (
	Product  = uuid.MustParse("6f1c2a9e-3b1d-4c55-9a0e-7d2f8b4e1a01")
	FAQ      = uuid.MustParse("6f1c2a9e-3b1d-4c55-9a0e-7d2f8b4e1a02")
	Web      = uuid.MustParse("6f1c2a9e-3b1d-4c55-9a0e-7d2f8b4e1a03")
	Document = uuid.MustParse("6f1c2a9e-3b1d-4c55-9a0e-7d2f8b4e1a04")
)

// Derive returns the UUIDv5 of key within namespace ns.
func Derive(ns uuid.UUID, key string) string {
	return uuid.NewSHA1(ns, []byte(key)).String()
}

// Namespace returns the namespace for a kind. Unknown kinds get uuid.Nil.
func Namespace(k kind.Kind) uuid.UUID {
	switch k {
	case kind.Product:
		return Product
	case kind.FAQ:
		return FAQ
	case kind.Web:
		return Web
	case kind.Document:
		return Document
	default:
		return uuid.Nil
	}
}

// For derives the point id of an entity key of the given kind.
func For(k kind.Kind, key string) string {
	return Derive(Namespace(k), key)
}
