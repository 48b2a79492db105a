// Package logging builds the process logger. Pipeline packages only see a
// Printf-style interface; this package backs it with zerolog.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes human-readable lines through a zerolog console writer.
type Logger struct {
	zl zerolog.Logger
}

// New returns a Logger writing to w. Debug output is enabled only when verbose
// is set.
func New(w io.Writer, verbose bool) *Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	return &Logger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// Printf logs at info level.
func (l *Logger) Printf(format string, v ...any) {
	l.zl.Info().Msgf(format, v...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	l.zl.Debug().Msgf(format, v...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	l.zl.Error().Msgf(format, v...)
}

// With returns a child logger that adds key=value to every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Verbose reports whether debug lines are written.
func (l *Logger) Verbose() bool {
	return l.zl.GetLevel() <= zerolog.DebugLevel
}
