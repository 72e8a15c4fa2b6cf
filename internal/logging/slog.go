package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// SlogConfig selects the slog handler.
type SlogConfig struct {
	// Writer receives the output. Defaults to os.Stderr.
	Writer    io.Writer
	Level     slog.Leveler
	AddSource bool
	JSON      bool
	Color     bool
}

// SlogLogger writes entries through a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlog builds a SlogLogger. JSON wins over Color; with neither set the
// plain text handler is used.
func NewSlog(cfg SlogConfig) *SlogLogger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: cfg.AddSource, Level: cfg.Level}

	var handler slog.Handler
	switch {
	case cfg.JSON:
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	case cfg.Color:
		handler = tint.NewHandler(cfg.Writer, &tint.Options{
			Level:      cfg.Level,
			AddSource:  cfg.AddSource,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		handler = slog.NewTextHandler(cfg.Writer, opts)
	}
	return &SlogLogger{logger: slog.New(handler)}
}

func attrs(fields Fields) []any {
	out := make([]any, 0, len(fields))
	for _, k := range sortedKeys(fields) {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

func (l *SlogLogger) Debug(msg string, fields Fields) {
	l.logger.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields Fields) {
	l.logger.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields Fields) {
	l.logger.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, err error, fields Fields) {
	a := attrs(fields)
	if err != nil {
		a = append(a, slog.String("error", err.Error()))
	}
	l.logger.Error(msg, a...)
}

func (l *SlogLogger) WithFields(fields Fields) Logger {
	return &SlogLogger{logger: l.logger.With(attrs(fields)...)}
}
