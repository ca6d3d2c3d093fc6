package filter

import (
	"fmt"
	"strconv"
)

// Matches evaluates the expression against a decoded payload.
// It is used where the index cannot evaluate filters natively.
func (e Expression) Matches(payload map[string]any) bool {
	for _, c := range e.must {
		if !c.matches(payload) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.matches(payload) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, c := range e.should {
		if c.matches(payload) {
			return true
		}
	}
	return false
}

func (c Condition) matches(payload map[string]any) bool {
	v, ok := payload[c.key]
	if !ok || v == nil {
		return false
	}
	if c.IsMatch() {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if fmt.Sprint(item) == c.match {
					return true
				}
			}
			return false
		}
		return fmt.Sprint(v) == c.match
	}
	if c.IsRange() {
		f, ok := toFloat(v)
		return ok && c.rangeExpr.contains(f)
	}
	return false
}

func (r Range) contains(f float64) bool {
	switch {
	case r.gt != nil && f <= *r.gt:
		return false
	case r.gte != nil && f < *r.gte:
		return false
	case r.lt != nil && f >= *r.lt:
		return false
	case r.lte != nil && f > *r.lte:
		return false
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
