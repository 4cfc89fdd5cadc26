package log

import (
	stdlog "log"
)

// Config describes logger settings sourced from env or flags.
type Config struct {
	Level  string
	Format string
}

// ApplyConfig builds a Logger from a Config. Unknown values fall back to
// info/text and return the parse error alongside a usable logger.
func ApplyConfig(cfg *Config) (Logger, error) {
	level := InfoLevel
	var firstErr error
	if cfg != nil && cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			firstErr = err
		} else {
			level = l
		}
	}
	format := TextFormat
	if cfg != nil {
		switch cfg.Format {
		case "", "text":
		case "json":
			format = JSONFormat
		default:
			if firstErr == nil {
				firstErr = &ParseError{Input: cfg.Format}
			}
		}
	}
	return NewLogger(WithLevel(level), WithFormat(format)), firstErr
}

// RedirectStdLog routes the standard library's global logger (used by
// Pebble among others) through the provided Logger at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: logger})
}

type stdWriter struct{ logger Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Info(msg, Component("stdlog"))
	return len(p), nil
}
