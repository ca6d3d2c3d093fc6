// Package filter holds payload filter expressions evaluated by the vector index.
package filter

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// TenantField is the payload key every point carries and every query filters on.
const TenantField = "tenant_id"

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	groups := []struct {
		name  string
		conds []Condition
	}{{"must", must}, {"should", should}, {"must_not", mustNot}}
	for _, g := range groups {
		if len(g.conds) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("%w: too many %s conditions (max %d)",
				domain.ErrInvalidFilter, g.name, MaxConditionsPerGroup)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// ForTenant returns a filter matching only points of tenantID.
func ForTenant(tenantID string) Expression {
	return Expression{must: []Condition{{key: TenantField, match: tenantID}}}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// ScopedTo returns a copy of e with tenant_id == tenantID prepended to must.
// The receiver is not modified.
func (e Expression) ScopedTo(tenantID string) Expression {
	must := make([]Condition, 0, len(e.must)+1)
	must = append(must, Condition{key: TenantField, match: tenantID})
	must = append(must, e.must...)
	return Expression{must: must, should: e.should, mustNot: e.mustNot}
}

// Keys returns every field name referenced by the expression, in group order.
func (e Expression) Keys() []string {
	keys := make([]string, 0, len(e.must)+len(e.should)+len(e.mustNot))
	for _, group := range [][]Condition{e.must, e.should, e.mustNot} {
		for _, c := range group {
			keys = append(keys, c.key)
		}
	}
	return keys
}

// Restrict fails with ErrInvalidFilter when e references a field outside allowed.
func (e Expression) Restrict(allowed map[string]bool) error {
	for _, k := range e.Keys() {
		if !allowed[k] {
			return fmt.Errorf("%w: field %q is not filterable", domain.ErrInvalidFilter, k)
		}
	}
	return nil
}

// Condition is a single filter clause: either a keyword match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact keyword match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", domain.ErrInvalidFilter)
	}
	if match == "" {
		return Condition{}, fmt.Errorf("%w: match value is required for key %q", domain.ErrInvalidFilter, key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", domain.ErrInvalidFilter)
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("%w: at least one range boundary is required", domain.ErrInvalidFilter)
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both gt and gte", domain.ErrInvalidFilter)
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both lt and lte", domain.ErrInvalidFilter)
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
