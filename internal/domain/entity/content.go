package entity

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// FaqEntry is a question/answer pair.
type FaqEntry struct {
	ID       string
	Tenant   string
	Question string
	Answer   string
	Source   string
}

// Kind implements Entity.
func (f FaqEntry) Kind() kind.Kind { return kind.FAQ }

// TenantID implements Entity.
func (f FaqEntry) TenantID() string { return f.Tenant }

// Key implements Entity.
func (f FaqEntry) Key() string { return f.ID }

// HasKey implements Entity.
func (f FaqEntry) HasKey() bool { return strings.TrimSpace(f.ID) != "" }

// Text implements Entity.
func (f FaqEntry) Text() string {
	var parts []string
	if q := strings.TrimSpace(f.Question); q != "" {
		parts = append(parts, "Question: "+q)
	}
	if a := strings.TrimSpace(f.Answer); a != "" {
		parts = append(parts, "Answer: "+a)
	}
	return joinParts(parts)
}

// Payload implements Entity.
func (f FaqEntry) Payload(maxText int) map[string]any {
	out := basePayload(f)
	out["question"] = Truncate(f.Question, maxText)
	out["answer"] = Truncate(f.Answer, maxText)
	out["source"] = f.Source
	return out
}

// WebChunk is one chunk of a scraped page.
type WebChunk struct {
	Tenant     string
	URL        string
	Title      string
	Content    string
	ChunkIndex int
}

// Kind implements Entity.
func (w WebChunk) Kind() kind.Kind { return kind.Web }

// TenantID implements Entity.
func (w WebChunk) TenantID() string { return w.Tenant }

// Key implements Entity.
func (w WebChunk) Key() string {
	return w.Tenant + "-" + w.URL + "#" + strconv.Itoa(w.ChunkIndex)
}

// HasKey implements Entity.
func (w WebChunk) HasKey() bool { return strings.TrimSpace(w.URL) != "" }

// Text implements Entity.
func (w WebChunk) Text() string {
	var parts []string
	if t := strings.TrimSpace(w.Title); t != "" {
		parts = append(parts, "Title: "+t)
	}
	if c := strings.TrimSpace(w.Content); c != "" {
		parts = append(parts, "Content: "+c)
	}
	return joinParts(parts)
}

// Payload implements Entity.
func (w WebChunk) Payload(maxText int) map[string]any {
	out := basePayload(w)
	out["url"] = w.URL
	out["page_url"] = PageURL(w.URL)
	out["title"] = Truncate(w.Title, maxText)
	out["text"] = Truncate(w.Content, maxText)
	out["chunk_index"] = w.ChunkIndex
	return out
}

// PageURL strips the #fragment from a URL.
func PageURL(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// DocumentChunk is one chunk of an uploaded document.
type DocumentChunk struct {
	Tenant     string
	DocumentID string
	ChunkIndex int
	Title      string
	Content    string
}

// Kind implements Entity.
func (d DocumentChunk) Kind() kind.Kind { return kind.Document }

// TenantID implements Entity.
func (d DocumentChunk) TenantID() string { return d.Tenant }

// Key implements Entity.
func (d DocumentChunk) Key() string {
	return d.DocumentID + "#" + strconv.Itoa(d.ChunkIndex)
}

// HasKey implements Entity.
func (d DocumentChunk) HasKey() bool { return strings.TrimSpace(d.DocumentID) != "" }

// Text implements Entity.
func (d DocumentChunk) Text() string {
	var parts []string
	if t := strings.TrimSpace(d.Title); t != "" {
		parts = append(parts, "Document: "+t)
	}
	if c := strings.TrimSpace(d.Content); c != "" {
		parts = append(parts, "Content: "+c)
	}
	return joinParts(parts)
}

// Payload implements Entity.
func (d DocumentChunk) Payload(maxText int) map[string]any {
	out := basePayload(d)
	out["document_id"] = d.DocumentID
	out["title"] = Truncate(d.Title, maxText)
	out["text"] = Truncate(d.Content, maxText)
	out["chunk_index"] = d.ChunkIndex
	return out
}
