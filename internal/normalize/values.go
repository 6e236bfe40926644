package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one decoded source object. Nested objects stay as
// map[string]interface{}, which is what dot-path lookup traverses.
type Record = map[string]interface{}

// DecodeRecords parses a raw snapshot body into its per-station records.
// Every source feed is a single JSON array.
func DecodeRecords(raw []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode source payload: %w", err)
	}
	return records, nil
}

// lookup walks a dot-separated path through nested objects. The second
// return is false when any segment is absent or null.
func lookup(rec Record, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	var cur interface{} = rec
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}

	if cur == nil {
		return nil, false
	}
	return cur, true
}

func asString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("cannot read %T as string", v)
	}
}

func asFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot read %q as number", t)
		}
		return f, nil
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("cannot read %T as number", v)
	}
}

func asInt(v interface{}) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}

// The feeds report timestamps as ISO 8601, with and without a zone.
var statementLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func asTime(v interface{}) (time.Time, error) {
	s, err := asString(v)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range statementLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// requiredString fails the whole batch when the field is missing; the
// feeds carry no per-row quality guarantees, so a hole means the source
// schema changed underneath us.
func requiredString(rec Record, path, field string) (string, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return "", fmt.Errorf("missing field %s (%s)", field, path)
	}
	s, err := asString(v)
	if err != nil {
		return "", fmt.Errorf("field %s (%s): %w", field, path, err)
	}
	return s, nil
}

func requiredFloat(rec Record, path, field string) (float64, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return 0, fmt.Errorf("missing field %s (%s)", field, path)
	}
	f, err := asFloat(v)
	if err != nil {
		return 0, fmt.Errorf("field %s (%s): %w", field, path, err)
	}
	return f, nil
}

func requiredInt(rec Record, path, field string) (int, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return 0, fmt.Errorf("missing field %s (%s)", field, path)
	}
	n, err := asInt(v)
	if err != nil {
		return 0, fmt.Errorf("field %s (%s): %w", field, path, err)
	}
	return n, nil
}

func requiredTime(rec Record, path, field string) (time.Time, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return time.Time{}, fmt.Errorf("missing field %s (%s)", field, path)
	}
	ts, err := asTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s (%s): %w", field, path, err)
	}
	return ts, nil
}

// optionalString returns nil when the path is empty, absent or null.
func optionalString(rec Record, path string) (*string, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return nil, nil
	}
	s, err := asString(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	return &s, nil
}

func optionalInt(rec Record, path string) (*int, error) {
	v, ok := lookup(rec, path)
	if !ok {
		return nil, nil
	}
	n, err := asInt(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	return &n, nil
}
