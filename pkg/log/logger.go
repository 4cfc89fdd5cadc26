package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a textual level ("debug", "info", "warn", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, &ParseError{Input: s}
}

// ParseError reports an unrecognized level or format string.
type ParseError struct{ Input string }

func (e *ParseError) Error() string { return `log: unrecognized value "` + e.Input + `"` }

// Format selects the output encoding.
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// Logger is the logging interface passed between components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger carrying the additional fields.
	With(fields ...Field) Logger

	// SetLevel adjusts the minimum level at runtime.
	SetLevel(level Level)
	// GetLevel returns the current minimum level.
	GetLevel() Level
}

// Option configures a logger under construction.
type Option func(*baseLogger)

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *baseLogger) { l.lvl.Set(toSlogLevel(level)) }
}

// WithFormat selects text or JSON output.
func WithFormat(f Format) Option {
	return func(l *baseLogger) { l.format = f }
}

// WithWriter directs output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(l *baseLogger) { l.w = w }
}

type baseLogger struct {
	lvl    *slog.LevelVar
	format Format
	w      io.Writer
	sl     *slog.Logger
}

// NewLogger creates a logger with the given options. Defaults: info level,
// text format, stderr.
func NewLogger(options ...Option) Logger {
	l := &baseLogger{lvl: new(slog.LevelVar), format: TextFormat, w: os.Stderr}
	l.lvl.Set(slog.LevelInfo)
	for _, opt := range options {
		opt(l)
	}
	ho := &slog.HandlerOptions{Level: l.lvl}
	var h slog.Handler
	if l.format == JSONFormat {
		h = slog.NewJSONHandler(l.w, ho)
	} else {
		h = slog.NewTextHandler(l.w, ho)
	}
	l.sl = slog.New(h)
	return l
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return NewLogger(WithWriter(io.Discard), WithLevel(ErrorLevel))
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.sl.Debug(msg, args(fields)...) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.sl.Info(msg, args(fields)...) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.sl.Warn(msg, args(fields)...) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.sl.Error(msg, args(fields)...) }

func (l *baseLogger) With(fields ...Field) Logger {
	child := *l
	child.sl = l.sl.With(args(fields)...)
	return &child
}

func (l *baseLogger) SetLevel(level Level) { l.lvl.Set(toSlogLevel(level)) }

func (l *baseLogger) GetLevel() Level { return fromSlogLevel(l.lvl.Level()) }

func args(fields []Field) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level <= slog.LevelDebug:
		return DebugLevel
	case level == slog.LevelInfo:
		return InfoLevel
	case level == slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}
