package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Level controls the minimum severity that gets emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Field is a single structured log attribute.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is a thin leveled wrapper around slog with a tint handler.
type Logger struct {
	slog *slog.Logger
}

// New creates a logger writing colorized structured output to stderr.
func New(level Level) *Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel(level),
		TimeFormat: time.Kitchen,
	})
	return &Logger{slog: slog.New(handler)}
}

// NewDiscard returns a logger that drops everything below the error level,
// for use in tests.
func NewDiscard() *Logger {
	return New(LevelError)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithField builds a single log field.
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithFields builds log fields from a map. Ordering is not guaranteed.
func WithFields(fields map[string]interface{}) []Field {
	out := make([]Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, Field{Key: k, Value: v})
	}
	return out
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.slog.Debug(msg, flatten(fields)...)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.slog.Info(msg, flatten(fields)...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.slog.Warn(msg, flatten(fields)...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.slog.Error(msg, flatten(fields)...)
}

// flatten accepts Field values or []Field slices and converts them to the
// alternating key/value form slog expects.
func flatten(fields []interface{}) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		switch v := f.(type) {
		case Field:
			args = append(args, v.Key, v.Value)
		case []Field:
			for _, inner := range v {
				args = append(args, inner.Key, inner.Value)
			}
		}
	}
	return args
}
