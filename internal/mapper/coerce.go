package mapper

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// first returns the value of the first key present with a non-nil value.
func first(rec types.Record, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// unwrapSingle returns the element of a single-element array, or v itself.
func unwrapSingle(v any) any {
	switch arr := v.(type) {
	case []any:
		if len(arr) == 1 {
			return arr[0]
		}
	case []string:
		if len(arr) == 1 {
			return arr[0]
		}
	case []float64:
		if len(arr) == 1 {
			return arr[0]
		}
	}
	return v
}

// toFloat accepts JSON numbers, Go numeric types, numeric strings and
// single-element arrays of those. NaN and infinities are rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := unwrapSingle(v).(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatField(rec types.Record, keys ...string) (float64, bool) {
	v, ok := first(rec, keys...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// countField reads a non-negative integer count; negatives clamp to 0.
func countField(rec types.Record, keys ...string) int {
	f, ok := floatField(rec, keys...)
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

func counterField(rec types.Record, keys ...string) int64 {
	f, ok := floatField(rec, keys...)
	if !ok || f < 0 {
		return 0
	}
	return int64(f)
}

func floatPtrField(rec types.Record, keys ...string) *float64 {
	f, ok := floatField(rec, keys...)
	if !ok {
		return nil
	}
	return &f
}

func toString(v any) (string, bool) {
	switch s := unwrapSingle(v).(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case json.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

func stringField(rec types.Record, keys ...string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := toString(v); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func toBool(v any) (bool, bool) {
	switch b := unwrapSingle(v).(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	case int64:
		return b != 0, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

func boolField(rec types.Record, keys ...string) (bool, bool) {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if b, ok := toBool(v); ok {
			return b, true
		}
	}
	return false, false
}

// stringList reads an array of strings, a JSON-encoded array, or a
// comma-separated string. Non-string elements are dropped.
func stringList(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out, true
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, false
		}
		if strings.HasPrefix(trimmed, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
				return nil, false
			}
			return stringList(arr)
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func timeField(rec types.Record, keys ...string) time.Time {
	v, ok := first(rec, keys...)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed.UTC()
			}
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	}
	return time.Time{}
}
