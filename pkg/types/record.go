package types

import "fmt"

// Record is the backend's native row: loosely typed, nullable, and possibly
// carrying several legacy names for the same concept.
type Record map[string]any

// ID returns the record id as a string. Numeric ids are formatted without a
// fractional part. Returns "" when the record has no usable id.
func (r Record) ID() string {
	switch v := r[ColumnID].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies every field of patch into r, overwriting existing keys.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		r[k] = v
	}
}
