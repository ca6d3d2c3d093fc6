package qdrant

import (
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/semsearch/internal/domain/filter"
)

func pointID(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func idString(id *pb.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func hasID(ids []string) *pb.Condition {
	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_HasId{HasId: &pb.HasIdCondition{HasId: pids}},
	}
}

// toFilter converts an expression to a Qdrant filter. Empty expressions give nil.
func toFilter(expr filter.Expression) *pb.Filter {
	if expr.IsEmpty() {
		return nil
	}
	return &pb.Filter{
		Must:    toConditions(expr.Must()),
		Should:  toConditions(expr.Should()),
		MustNot: toConditions(expr.MustNot()),
	}
}

func toConditions(conds []filter.Condition) []*pb.Condition {
	if len(conds) == 0 {
		return nil
	}
	out := make([]*pb.Condition, 0, len(conds))
	for _, c := range conds {
		fc := &pb.FieldCondition{Key: c.Key()}
		switch {
		case c.IsMatch():
			fc.Match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: c.Match()}}
		case c.IsRange():
			r := c.Range()
			fc.Range = &pb.Range{Gt: r.GT(), Gte: r.GTE(), Lt: r.LT(), Lte: r.LTE()}
		default:
			continue
		}
		out = append(out, &pb.Condition{ConditionOneOf: &pb.Condition_Field{Field: fc}})
	}
	return out
}

func toPayload(m map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(m))
	for k, v := range m {
		out[k] = toValue(v)
	}
	return out
}

func toValue(v any) *pb.Value {
	switch tv := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case float32:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: float64(tv)}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case []string:
		vals := make([]*pb.Value, len(tv))
		for i, s := range tv {
			vals[i] = toValue(s)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	case []any:
		vals := make([]*pb.Value, len(tv))
		for i, e := range tv {
			vals[i] = toValue(e)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	case map[string]any:
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: toPayload(tv)}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromPayload(m map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_ListValue:
		vals := kind.ListValue.GetValues()
		out := make([]any, len(vals))
		for i, e := range vals {
			out[i] = fromValue(e)
		}
		return out
	case *pb.Value_StructValue:
		return fromPayload(kind.StructValue.GetFields())
	default:
		return nil
	}
}
