// Package wire holds the JSON shapes shared by the HTTP and NATS transports.
package wire

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// ErrTenantMismatch signals a body entity naming a tenant other than the request's.
var ErrTenantMismatch = fmt.Errorf("%w: entity tenant does not match request tenant", domain.ErrValidation)

// Entity is one indexable entity. Kind selects which fields apply.
type Entity struct {
	Kind     string `json:"kind"`
	TenantID string `json:"tenant_id,omitempty"`

	// product, faq
	ID string `json:"id,omitempty"`

	// product
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	CategoryID     string            `json:"category_id,omitempty"`
	CategoryName   string            `json:"category_name,omitempty"`
	Specs          []string          `json:"specs,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Keywords       []string          `json:"keywords,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Price          *float64          `json:"price,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	HasActiveOffer bool              `json:"has_active_offer,omitempty"`
	PriceOld       *float64          `json:"price_old,omitempty"`
	PriceNew       *float64          `json:"price_new,omitempty"`
	IsAvailable    *bool             `json:"is_available,omitempty"`
	Status         string            `json:"status,omitempty"`

	// faq
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Source   string `json:"source,omitempty"`

	// product, web
	URL string `json:"url,omitempty"`

	// web, document
	Title      string `json:"title,omitempty"`
	Content    string `json:"content,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`

	// document
	DocumentID string `json:"document_id,omitempty"`
}

// ToEntity converts e into a domain entity of tenantID.
// An empty e.TenantID inherits tenantID; a different one is rejected.
func (e Entity) ToEntity(tenantID string) (entity.Entity, error) {
	k, err := kind.Parse(e.Kind)
	if err != nil {
		return nil, err //nolint:wrapcheck // validation error
	}
	tenant := tenantID
	if e.TenantID != "" {
		if tenantID != "" && e.TenantID != tenantID {
			return nil, ErrTenantMismatch
		}
		tenant = e.TenantID
	}

	switch k {
	case kind.Product:
		return entity.Product{
			ID:             e.ID,
			Tenant:         tenant,
			Name:           e.Name,
			Description:    e.Description,
			CategoryID:     e.CategoryID,
			CategoryName:   e.CategoryName,
			Specs:          e.Specs,
			Attributes:     e.Attributes,
			Keywords:       e.Keywords,
			Images:         e.Images,
			Price:          e.Price,
			Currency:       e.Currency,
			HasActiveOffer: e.HasActiveOffer,
			PriceOld:       e.PriceOld,
			PriceNew:       e.PriceNew,
			IsAvailable:    e.IsAvailable,
			Status:         e.Status,
			URL:            e.URL,
		}, nil
	case kind.FAQ:
		return entity.FaqEntry{ID: e.ID, Tenant: tenant, Question: e.Question, Answer: e.Answer, Source: e.Source}, nil
	case kind.Web:
		return entity.WebChunk{Tenant: tenant, URL: e.URL, Title: e.Title, Content: e.Content, ChunkIndex: e.ChunkIndex}, nil
	default:
		return entity.DocumentChunk{
			Tenant:     tenant,
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			Title:      e.Title,
			Content:    e.Content,
		}, nil
	}
}

// key names the entity in failure reports when it cannot be converted.
func (e Entity) key() string {
	switch {
	case e.ID != "":
		return e.ID
	case e.URL != "":
		return e.URL
	default:
		return e.DocumentID
	}
}

// Entities converts items for tenantID. Items that fail conversion come back as
// failed results so one bad item never rejects the request.
func Entities(items []Entity, tenantID string) ([]entity.Entity, []batch.Result) {
	out := make([]entity.Entity, 0, len(items))
	var rejected []batch.Result
	for _, it := range items {
		e, err := it.ToEntity(tenantID)
		if err != nil {
			rejected = append(rejected, batch.NewError(it.key(), kind.Kind(it.Kind), err))
			continue
		}
		out = append(out, e)
	}
	return out, rejected
}
