package points

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// buildHashFields serializes a point. Scalar payload values are also written as
// top-level hash fields so that the FT index can filter on them.
func buildHashFields(p *point.Point) (map[string]string, error) {
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	fields := map[string]string{
		fieldVector:  vectorToBytes(p.Vector),
		fieldID:      p.ID,
		fieldPayload: string(raw),
	}
	for k, v := range p.Payload {
		if strings.HasPrefix(k, "__") {
			continue
		}
		if s, ok := scalarString(v); ok {
			fields[k] = s
		}
	}
	return fields, nil
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// parseEntry converts a KNN hit back into a candidate.
func parseEntry(prefix string, e db.SearchEntry) (point.Candidate, error) {
	payload, err := decodePayload(e.Fields[fieldPayload])
	if err != nil {
		return point.Candidate{}, err
	}
	id := e.Fields[fieldID]
	if id == "" {
		id = strings.TrimPrefix(e.Key, prefix)
	}
	return point.Candidate{
		ID:      id,
		Kind:    kind.Kind(point.String(payload, point.FieldKind)),
		Score:   e.Score,
		Payload: payload,
	}, nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
