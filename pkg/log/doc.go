// Package log provides the structured logging system used across the
// wrapper sync services. It is a thin layer over log/slog with a Field
// API, text and JSON formats, and helpers to route stdlib logging (for
// example Pebble's) through the configured logger.
//
// Example:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel), log.WithFormat(log.TextFormat))
//	logger = logger.With(log.Component("tracking"))
//	logger.Info("record acknowledged", log.Str("event_id", id))
package log
