package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured level
const EnvLogLevel = "CODEBUG_LOG_LEVEL"

// New returns the emulator logger.
// With an empty path it logs to out (stdout when nil), otherwise it appends
// to the file at path. The returned closer releases the file.
func New(path, level string, out io.Writer) (zerolog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	var w io.Writer

	if len(path) == 0 {
		if out == nil {
			out = os.Stdout
		}
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	} else {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
		closer = f
	}

	lvl := ParseLevel(level)
	if env, ok := os.LookupEnv(EnvLogLevel); ok {
		lvl = ParseLevel(env)
	}

	l := zerolog.New(w).Level(lvl).With().Timestamp().Str("app", "codebug").Logger()
	return l, closer, nil
}

// ParseLevel maps a level name to a zerolog level, info when unknown.
func ParseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
