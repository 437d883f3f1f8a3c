package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for file output.
const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 28
)

type options struct {
	out    io.Writer
	format string
	file   string
	level  slog.Level
}

func defaultOptions() options {
	return options{out: os.Stdout, format: "text", level: slog.LevelInfo}
}

// Option applies a configuration option to the logger.
type Option func(*options)

// WithOutput sends records to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithFormat selects "text" or "json" records.
func WithFormat(format string) Option {
	return func(o *options) {
		if f := strings.ToLower(strings.TrimSpace(format)); f != "" {
			o.format = f
		}
	}
}

// WithFile writes records to a size-rotated file in addition to the output.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = strings.TrimSpace(path)
	}
}

// WithLevel sets the starting level of loggers built with New.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

func (o options) writer() (io.Writer, io.Closer, error) {
	if o.file == "" {
		return o.out, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(o.file), 0o755); err != nil {
		return nil, nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   o.file,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(o.out, lj), lj, nil
}

func (o options) handler(w io.Writer, level slog.Leveler) slog.Handler {
	ho := &slog.HandlerOptions{Level: level, AddSource: false}
	if o.format == "json" {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}
