// Package logger carries a zerolog logger on the context.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at level. A console writer is used when
// pretty is set.
func New(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel parses a level name, defaulting to info when s is empty.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}

// With attaches l to ctx.
func With(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// Get returns the logger attached to ctx, or a disabled logger.
func Get(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
