package logging

import "sync"

// Entry is one entry captured by a Recorder.
type Entry struct {
	Level   string
	Message string
	Err     error
	Fields  Fields
}

// Recorder is an in-memory Logger. It is safe for concurrent use and is
// meant for tests and diagnostics.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  Fields
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}, fields: Fields{}}
}

func (r *Recorder) add(level, msg string, err error, fields Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Err: err, Fields: merge(r.fields, fields)})
}

func (r *Recorder) Debug(msg string, fields Fields) { r.add("debug", msg, nil, fields) }
func (r *Recorder) Info(msg string, fields Fields)  { r.add("info", msg, nil, fields) }
func (r *Recorder) Warn(msg string, fields Fields)  { r.add("warn", msg, nil, fields) }

func (r *Recorder) Error(msg string, err error, fields Fields) {
	r.add("error", msg, err, fields)
}

// WithFields returns a Recorder sharing r's entries.
func (r *Recorder) WithFields(fields Fields) Logger {
	return &Recorder{mu: r.mu, entries: r.entries, fields: merge(r.fields, fields)}
}

// Entries returns a copy of every captured entry.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Levels returns the captured entries at level.
func (r *Recorder) Levels(level string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
