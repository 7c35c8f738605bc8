// Package obslog provides structured logging for moshiki's ingestion and
// search paths. It wraps zerolog behind a small named-logger API in the
// spirit of a conventional structured logger: components get their own
// named logger, fields attach per-call instead of mutating global state.
package obslog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu        sync.Mutex
	level     = zerolog.InfoLevel
	output    io.Writer = os.Stderr
	pretty              = true
)

// SetLevel sets the level of all loggers created afterwards and zerolog's
// global level. Loggers already handed out keep their own level, so for
// them SetLevel can raise the minimum emitted level but not lower it.
func SetLevel(l zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	zerolog.SetGlobalLevel(l)
}

// SetOutput redirects all future loggers to w. Used by tests to capture
// output instead of writing to stderr.
func SetOutput(w io.Writer, pretty_ bool) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	pretty = pretty_
}

// Logger is a named, field-carrying wrapper around a zerolog.Logger.
type Logger struct {
	name string
	l    zerolog.Logger
}

// Named returns a Logger scoped to component name.
func Named(name string) *Logger {
	mu.Lock()
	w := output
	p := pretty
	mu.Unlock()

	if p {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Str("component", name).Logger().Level(level)
	return &Logger{name: name, l: zl}
}

// With returns a child logger carrying the given key/value in every
// subsequent log line.
func (lg *Logger) With(key string, value interface{}) *Logger {
	return &Logger{name: lg.name, l: lg.l.With().Interface(key, value).Logger()}
}

func (lg *Logger) Debug(msg string) { lg.l.Debug().Msg(msg) }
func (lg *Logger) Info(msg string)  { lg.l.Info().Msg(msg) }
func (lg *Logger) Warn(msg string)  { lg.l.Warn().Msg(msg) }
func (lg *Logger) Error(err error, msg string) {
	lg.l.Error().Err(err).Msg(msg)
}

// InfoFields logs msg at Info level with the given structured fields
// attached only to this line.
func (lg *Logger) InfoFields(msg string, fields map[string]interface{}) {
	ev := lg.l.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
