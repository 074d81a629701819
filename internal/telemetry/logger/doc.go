// Package logger provides structured logging for respkv.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, levels, JSON and text handlers
//   - output.go: rotating file output
//   - context.go: connection-scoped loggers carried in a context
//   - redact.go: payload truncation and secret masking
package logger
