// Package extjson maps the portable extended-JSON wire representation onto
// native bson values and back. Decoding is lenient: a tagged literal that
// does not have the expected shape is returned unchanged rather than raising
// an error, so a sloppy model response degrades instead of failing the whole
// request.
package extjson

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decode walks a wire tree (as produced by encoding/json) and replaces the
// recognized tagged shapes with native values: $oid, $date (RFC 3339 string,
// epoch-millis number, or a nested $numberLong wrapper), $numberLong,
// $numberDecimal, and $regularExpression.
func Decode(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if native, ok := decodeTagged(t); ok {
			return native
		}
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Decode(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Decode(e)
		}
		return out
	default:
		return v
	}
}

func decodeTagged(m map[string]any) (any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	for tag, raw := range m {
		switch tag {
		case "$oid":
			return decodeObjectID(raw)
		case "$date":
			return decodeDate(raw)
		case "$numberLong":
			return decodeInt64(raw)
		case "$numberDecimal":
			return decodeDecimal(raw)
		case "$regularExpression":
			return decodeRegex(raw)
		}
	}
	return nil, false
}

func decodeObjectID(raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, false
	}
	return id, true
}

func decodeDate(raw any) (any, bool) {
	switch t := raw.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, false
		}
		return primitive.NewDateTimeFromTime(ts), true
	case float64:
		return primitive.DateTime(int64(t)), true
	case map[string]any:
		// Canonical form: {"$date": {"$numberLong": "<millis>"}}.
		inner, ok := t["$numberLong"].(string)
		if !ok || len(t) != 1 {
			return nil, false
		}
		millis, err := strconv.ParseInt(inner, 10, 64)
		if err != nil {
			return nil, false
		}
		return primitive.DateTime(millis), true
	default:
		return nil, false
	}
}

// decodeInt64 keeps 64-bit integers as strings on the wire to avoid
// float64 precision loss in JSON.
func decodeInt64(raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func decodeDecimal(raw any) (any, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return nil, false
	}
	return d, true
}

func decodeRegex(raw any) (any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	pattern, ok := m["pattern"].(string)
	if !ok {
		return nil, false
	}
	options, _ := m["options"].(string)
	return primitive.Regex{Pattern: pattern, Options: options}, true
}

// Encode renders a result document tree as string-safe JSON: object ids
// become their canonical 24-hex form, datetimes RFC 3339 strings, decimals
// their decimal string, and ordered bson documents plain maps. Values with
// no special representation pass through for the JSON encoder to handle.
func Encode(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return t.String()
	case primitive.Regex:
		return map[string]any{"pattern": t.Pattern, "options": t.Options}
	case bson.D:
		out := make(map[string]any, len(t))
		for _, elem := range t {
			out[elem.Key] = Encode(elem.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Encode(child)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Encode(child)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Encode(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Encode(e)
		}
		return out
	default:
		return v
	}
}

// EncodeDocuments encodes a batch of result documents.
func EncodeDocuments(docs []bson.M) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i], _ = Encode(d).(map[string]any)
	}
	return out
}
