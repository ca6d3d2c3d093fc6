package kind

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Kind is the content type of an indexed entity. Each kind owns one collection.
type Kind string

// Content kinds.
const (
	Product  Kind = "product"
	FAQ      Kind = "faq"
	Web      Kind = "web"
	// Document holds chunks of uploaded files.
	Document Kind = "document"
)

// All lists every kind in canonical order.
func All() []Kind { return []Kind{Product, FAQ, Web, Document} }

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Product || k == FAQ || k == Web || k == Document
}

// Parse converts a raw string into a Kind.
func Parse(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
	}
	return k, nil
}
