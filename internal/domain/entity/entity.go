// Package entity turns tenant content into embeddable text and index payloads.
package entity

import (
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// MaxTextChars caps embeddable text, counted in runes.
const MaxTextChars = 3000

const partSep = ". "

// Entity is any piece of tenant content that can be indexed.
type Entity interface {
	Kind() kind.Kind
	TenantID() string
	// Key is the stable identity fed to the point id deriver.
	Key() string
	// HasKey reports whether the identifying field is set. Without it Key
	// collapses to a value shared by every entity of the kind.
	HasKey() bool
	// Text is the embeddable text. Empty means the entity must not be embedded.
	Text() string
	// Payload returns the stored payload with text cut to maxText runes.
	Payload(maxText int) map[string]any
}

// Truncate cuts s to at most n runes. n <= 0 disables the cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// joinParts joins non-empty parts, trims and caps the result.
func joinParts(parts []string) string {
	return Truncate(strings.TrimSpace(strings.Join(parts, partSep)), MaxTextChars)
}

// basePayload returns the keys every point carries.
func basePayload(e Entity) map[string]any {
	return map[string]any{
		point.FieldTenantID:  e.TenantID(),
		point.FieldKind:      string(e.Kind()),
		point.FieldEntityKey: e.Key(),
	}
}

func joinNonEmpty(items []string, sep string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}

// Fields returns the filterable payload fields of a kind.
func Fields(k kind.Kind) []point.FieldSpec {
	switch k {
	case kind.Product:
		return []point.FieldSpec{
			{Name: point.FieldEntityKey, Type: point.FieldKeyword},
			{Name: "category_id", Type: point.FieldKeyword},
			{Name: "status", Type: point.FieldKeyword},
			{Name: "price", Type: point.FieldNumeric},
		}
	case kind.FAQ:
		return []point.FieldSpec{
			{Name: point.FieldEntityKey, Type: point.FieldKeyword},
			{Name: "source", Type: point.FieldKeyword},
		}
	case kind.Web:
		return []point.FieldSpec{
			{Name: point.FieldEntityKey, Type: point.FieldKeyword},
			{Name: "page_url", Type: point.FieldKeyword},
		}
	case kind.Document:
		return []point.FieldSpec{
			{Name: point.FieldEntityKey, Type: point.FieldKeyword},
			{Name: "document_id", Type: point.FieldKeyword},
		}
	default:
		return nil
	}
}

// RerankText renders a stored payload as the passage a relevance model judges.
func RerankText(k kind.Kind, payload map[string]any) string {
	switch k {
	case kind.FAQ:
		return point.String(payload, "question") + " - " + point.String(payload, "answer")
	case kind.Product:
		return joinNonEmpty([]string{point.String(payload, "name"), point.String(payload, "description")}, ". ")
	default:
		return point.String(payload, "text")
	}
}
