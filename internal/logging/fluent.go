package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Poster is the subset of *fluent.Fluent used by FluentLogger.
type Poster interface {
	Post(tag string, message any) error
	Close() error
}

// FluentConfig addresses a fluentd forwarder.
type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string
	Async     bool
	Level     slog.Leveler
}

// FluentLogger ships entries to fluentd, tagged by level.
type FluentLogger struct {
	client   Poster
	fields   Fields
	minLevel slog.Level
}

// NewFluent connects to fluentd and returns a FluentLogger.
func NewFluent(cfg FluentConfig) (*FluentLogger, error) {
	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
		Async:      cfg.Async,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to fluentd: %w", err)
	}
	return NewFluentWithClient(client, cfg.Level)
}

// NewFluentWithClient wraps an existing client.
func NewFluentWithClient(client Poster, minLevel slog.Leveler) (*FluentLogger, error) {
	if client == nil {
		return nil, errors.New("fluent client cannot be nil")
	}
	level := slog.LevelInfo
	if minLevel != nil {
		level = minLevel.Level()
	}
	return &FluentLogger{client: client, fields: Fields{}, minLevel: level}, nil
}

func (l *FluentLogger) post(level slog.Level, msg string, data Fields) {
	if level < l.minLevel {
		return
	}
	data["level"] = level.String()
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	// Delivery failures are not reportable through a logger.
	_ = l.client.Post(level.String(), map[string]any(data))
}

func (l *FluentLogger) Debug(msg string, fields Fields) {
	l.post(slog.LevelDebug, msg, merge(l.fields, fields))
}

func (l *FluentLogger) Info(msg string, fields Fields) {
	l.post(slog.LevelInfo, msg, merge(l.fields, fields))
}

func (l *FluentLogger) Warn(msg string, fields Fields) {
	l.post(slog.LevelWarn, msg, merge(l.fields, fields))
}

func (l *FluentLogger) Error(msg string, err error, fields Fields) {
	data := merge(l.fields, fields)
	if err != nil {
		data["error"] = err.Error()
	}
	l.post(slog.LevelError, msg, data)
}

func (l *FluentLogger) WithFields(fields Fields) Logger {
	return &FluentLogger{client: l.client, fields: merge(l.fields, fields), minLevel: l.minLevel}
}

// Close flushes and closes the fluentd connection.
func (l *FluentLogger) Close() error {
	return l.client.Close()
}
