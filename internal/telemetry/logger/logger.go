package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the application logger. Connection handlers get one through
// L(ctx), already tagged with the remote address and connection ID.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger

	// Slog returns the underlying *slog.Logger for packages that take one.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

type slogLogger struct {
	*slog.Logger
}

// level is shared by every logger built with New so a config reload can
// change it in place.
var level = new(slog.LevelVar)

// New builds a logger writing cfg.Format records to cfg.Output. Values of
// sensitive keys are masked and long payloads truncated.
func New(cfg Config) Logger {
	level.Set(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactAttr(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		h = slog.NewTextHandler(output, opts)
	default:
		h = slog.NewJSONHandler(output, opts)
	}
	return slogLogger{slog.New(h)}
}

// FromSlog adapts an existing *slog.Logger. nil means slog.Default().
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l}
}

// Default wraps slog's default logger, which SetDefault replaces.
func Default() Logger {
	return FromSlog(nil)
}

// SetDefault makes l slog's default logger.
func SetDefault(l Logger) {
	slog.SetDefault(l.Slog())
}

// SetLevel changes the level of every logger created by New.
func SetLevel(s string) {
	level.Set(parseLevel(s))
}

// GetLevel returns the current level as a lowercase name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

func (l slogLogger) With(args ...any) Logger {
	return slogLogger{l.Logger.With(args...)}
}

func (l slogLogger) Slog() *slog.Logger {
	return l.Logger
}

// parseLevel accepts slog level names plus "warning". Anything else is info.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lv
}
