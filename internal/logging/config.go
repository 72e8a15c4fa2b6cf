package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New builds the process logger from cfg: a slog logger on w, fanned out to
// fluentd when FluentHost is set. The returned close function flushes the
// fluentd client.
func New(cfg types.LoggingConfig, w io.Writer) (Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	console := NewSlog(SlogConfig{
		Writer: w,
		Level:  level,
		JSON:   cfg.Format == types.LogFormatJSON,
		Color:  cfg.Format == types.LogFormatColor,
	})
	if cfg.FluentHost == "" {
		return console, func() error { return nil }, nil
	}

	fl, err := NewFluent(FluentConfig{
		Host:      cfg.FluentHost,
		Port:      cfg.FluentPort,
		TagPrefix: "propsync",
		Async:     true,
		Level:     level,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fluent logger: %w", err)
	}
	return NewMulti(console, fl), fl.Close, nil
}
