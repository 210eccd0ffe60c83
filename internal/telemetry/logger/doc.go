// Package logger provides structured logging for valtok.
//
// It wraps log/slog:
//
//   - logger.go: handler setup, dynamic level, package-level helpers
//   - redact.go: secret redaction applied to every attribute
//   - context.go: logger and request ID propagation
//   - sink.go: token.Sink adapter for provider events
package logger
