package entity

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

// Product is a catalog item.
type Product struct {
	ID           string
	Tenant       string
	Name         string
	Description  string
	CategoryID   string
	CategoryName string
	Specs        []string
	Attributes   map[string]string
	Keywords     []string
	Images       []string

	Price          *float64
	Currency       string
	HasActiveOffer bool
	PriceOld       *float64
	PriceNew       *float64

	IsAvailable *bool
	Status      string
	URL         string
}

// Kind implements Entity.
func (p Product) Kind() kind.Kind { return kind.Product }

// TenantID implements Entity.
func (p Product) TenantID() string { return p.Tenant }

// Key implements Entity.
func (p Product) Key() string { return p.ID }

// HasKey implements Entity.
func (p Product) HasKey() bool { return strings.TrimSpace(p.ID) != "" }

// Text implements Entity.
func (p Product) Text() string {
	var parts []string
	if s := strings.TrimSpace(p.Name); s != "" {
		parts = append(parts, "Name: "+s)
	}
	if s := strings.TrimSpace(p.Description); s != "" {
		parts = append(parts, "Description: "+s)
	}
	if cat := p.category(); cat != "" {
		parts = append(parts, "Category: "+cat)
	}
	if specs := joinNonEmpty(p.Specs, ", "); specs != "" {
		parts = append(parts, "Specs: "+specs)
	}
	if attrs := p.attributes(); attrs != "" {
		parts = append(parts, "Attributes: "+attrs)
	}
	if kw := joinNonEmpty(p.Keywords, ", "); kw != "" {
		parts = append(parts, "Keywords: "+kw)
	}
	if p.HasActiveOffer && p.PriceOld != nil && p.PriceNew != nil {
		parts = append(parts, "Offer: from "+formatNumber(*p.PriceOld)+" to "+formatNumber(*p.PriceNew))
	}
	if p.Price != nil {
		parts = append(parts, strings.TrimSpace("Price: "+formatNumber(*p.Price)+" "+p.Currency))
	}
	return joinParts(parts)
}

// Payload implements Entity.
func (p Product) Payload(maxText int) map[string]any {
	out := basePayload(p)
	out["name"] = Truncate(p.Name, maxText)
	out["description"] = Truncate(p.Description, maxText)
	out["category_id"] = p.CategoryID
	out["category_name"] = p.CategoryName
	out["specs"] = nonNil(p.Specs)
	out["keywords"] = nonNil(p.Keywords)
	out["images"] = nonNil(p.Images)
	out["currency"] = p.Currency
	out["has_offer"] = p.HasActiveOffer
	out["status"] = p.Status
	out["url"] = p.URL
	if p.Price != nil {
		out["price"] = *p.Price
	}
	if p.PriceOld != nil {
		out["price_old"] = *p.PriceOld
	}
	if p.PriceNew != nil {
		out["price_new"] = *p.PriceNew
	}
	if pct, ok := p.DiscountPct(); ok {
		out["discount_pct"] = pct
	}
	if p.IsAvailable != nil {
		out["is_available"] = *p.IsAvailable
	}
	return out
}

// DiscountPct is the rounded percentage saved by the offer, never negative.
func (p Product) DiscountPct() (int, bool) {
	if p.PriceOld == nil || p.PriceNew == nil || *p.PriceOld <= 0 || *p.PriceNew <= 0 {
		return 0, false
	}
	pct := math.Round((*p.PriceOld - *p.PriceNew) / *p.PriceOld * 100)
	return int(math.Max(0, pct)), true
}

func (p Product) category() string {
	if s := strings.TrimSpace(p.CategoryName); s != "" {
		return s
	}
	return strings.TrimSpace(p.CategoryID)
}

func (p Product) attributes() string {
	if len(p.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p.Attributes))
	for k := range p.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(p.Attributes[k])
		if v == "" {
			continue
		}
		pairs = append(pairs, k+": "+v)
	}
	return strings.Join(pairs, "; ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
