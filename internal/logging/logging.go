// Package logging provides the structured Logger used across propsync and
// its adapters: log/slog (tinted or JSON), fluentd, and fan-out.
package logging

import "sort"

// Fields are structured key/value pairs attached to a log entry.
type Fields map[string]any

// Logger is the structured logger accepted by every component.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)

	// WithFields returns a logger that adds fields to every entry.
	WithFields(fields Fields) Logger
}

// merge returns a new map holding base overlaid with extra.
func merge(base, extra Fields) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// sortedKeys returns the keys of f in lexical order so entries render
// deterministically.
func sortedKeys(f Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Debug(string, Fields)        {}
func (nop) Info(string, Fields)         {}
func (nop) Warn(string, Fields)         {}
func (nop) Error(string, error, Fields) {}
func (n nop) WithFields(Fields) Logger  { return n }
