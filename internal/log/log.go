// Package log is freecal's logging front-end. Call sites pass a message and
// flat key/value pairs, one line per pipeline step; the engine underneath is
// zerolog with a console writer on stderr.
package log

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = timeFormat
	zerolog.ErrorFieldName = "err"
	root = newRoot(zerolog.InfoLevel)
}

func newRoot(lvl zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// SetLevel adjusts the minimum emitted level: "debug", "info" or "error".
// Unknown values fall back to info.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	root = newRoot(parseLevel(level))
}

// Debug logs at debug level with optional key/value pairs.
func Debug(msg string, kv ...any) { emit(zerolog.DebugLevel, msg, nil, kv) }

// Info logs at info level with optional key/value pairs.
func Info(msg string, kv ...any) { emit(zerolog.InfoLevel, msg, nil, kv) }

// Error logs at error level. The error lands in the "err" field ahead of
// any key/value pairs.
func Error(msg string, err error, kv ...any) { emit(zerolog.ErrorLevel, msg, err, kv) }

func emit(level zerolog.Level, msg string, err error, kv []any) {
	mu.RLock()
	l := root
	mu.RUnlock()

	e := l.WithLevel(level)
	if e == nil {
		return
	}
	if err != nil {
		e = e.Err(err)
	}
	// Pairs: key, value, key, value, ... A trailing odd key is ignored, and
	// non-string keys skip their pair.
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
