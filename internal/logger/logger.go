// Package logger gives the CLI, the exporter and the HTTP server one
// structured logger, passed around through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is what torch2ncnn code logs through. The converters in
// internal/convert never log; their callers do.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type handlerLogger struct {
	*slog.Logger
}

func (l *handlerLogger) With(args ...any) Logger {
	return &handlerLogger{Logger: l.Logger.With(args...)}
}

// New wraps an slog handler.
func New(h slog.Handler) Logger {
	return &handlerLogger{Logger: slog.New(h)}
}

// Text logs key=value lines at level and above.
func Text(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// JSON logs one JSON object per record at level and above.
func JSON(w io.Writer, level slog.Level) Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default is Text on stderr at info level.
func Default() Logger {
	return Text(os.Stderr, slog.LevelInfo)
}

// Discard drops every record. Tests use it to keep output clean.
func Discard() Logger {
	return New(slog.DiscardHandler)
}

// ForFormat picks JSON for "json" and Text for anything else.
func ForFormat(w io.Writer, format, level string) Logger {
	if strings.EqualFold(format, "json") {
		return JSON(w, ParseLevel(level))
	}
	return Text(w, ParseLevel(level))
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels,
// ignoring case. Anything else is info.
func ParseLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type ctxKey struct{}

// WithContext returns a child of ctx that carries l.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger stored by WithContext, or Default.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Default()
}
