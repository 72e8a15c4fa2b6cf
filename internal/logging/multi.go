package logging

// Multi fans every entry out to several loggers.
type Multi struct {
	loggers []Logger
}

// NewMulti returns a Logger writing to every non-nil logger given. With no
// loggers it behaves like Nop.
func NewMulti(loggers ...Logger) Logger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return Nop()
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &Multi{loggers: kept}
}

func (m *Multi) Debug(msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Debug(msg, fields)
	}
}

func (m *Multi) Info(msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Info(msg, fields)
	}
}

func (m *Multi) Warn(msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Warn(msg, fields)
	}
}

func (m *Multi) Error(msg string, err error, fields Fields) {
	for _, l := range m.loggers {
		l.Error(msg, err, fields)
	}
}

func (m *Multi) WithFields(fields Fields) Logger {
	out := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		out[i] = l.WithFields(fields)
	}
	return &Multi{loggers: out}
}
