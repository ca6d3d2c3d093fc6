package wire

import (
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
)

// Filter is a must/should/must_not payload filter.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	Should  []Condition `json:"should,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// Condition is either a keyword match or a numeric range on Key.
type Condition struct {
	Key   string  `json:"key"`
	Match *string `json:"match,omitempty"`
	Range *Range  `json:"range,omitempty"`
}

// Range bounds a numeric field.
type Range struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// ToExpression validates f and converts it into a filter expression.
func (f Filter) ToExpression() (filter.Expression, error) {
	must, err := conditions(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditions(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditions(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func conditions(cs []Condition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := c.toCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func (c Condition) toCondition() (filter.Condition, error) {
	switch {
	case c.Match != nil && c.Range != nil:
		return filter.Condition{}, fmt.Errorf("%w: condition for %q must have match or range, not both",
			domain.ErrInvalidFilter, c.Key)
	case c.Match != nil:
		cond, err := filter.NewMatch(c.Key, *c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	case c.Range != nil:
		rf, err := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	default:
		return filter.Condition{}, fmt.Errorf("%w: condition for %q must have match or range",
			domain.ErrInvalidFilter, c.Key)
	}
}
