// Package log provides the global logger for the whole application. It is a
// thin wrapper around zerolog with printf-style helpers and structured
// key/value forms. Call Init once at startup; the helpers are safe to use
// from any goroutine afterwards.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log levels accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

// logTestWriterName is the Init output name which sends all log output to
// the package-level logTestWriter. Only meant for tests and benchmarks.
const logTestWriterName = "_testWriter"

var (
	log zerolog.Logger

	// logTestWriter receives the raw log stream when Init is called with
	// logTestWriterName as output.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes the logger panic when a message carries
	// bytes outside the printable ASCII range. The check is expensive, so
	// it is only enabled via the environment, normally just in tests.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

// invalidCharHook panics when a log message contains non-printable bytes.
// It runs before zerolog escapes the message, so it sees the raw bytes.
type invalidCharHook struct{}

func (invalidCharHook) Run(_ *zerolog.Event, _ zerolog.Level, msg string) {
	for i := 0; i < len(msg); i++ {
		if b := msg[i]; b < 0x20 || b > 0x7e {
			panic(fmt.Sprintf("log message contains invalid character %q: %q", b, msg))
		}
	}
}

// errorLevelWriter forwards entries at error level or above to the wrapped
// writer and silently accepts everything else.
type errorLevelWriter struct {
	w io.Writer
}

func (lw errorLevelWriter) Write(p []byte) (int, error) { return len(p), nil }

func (lw errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// Init initializes the global logger at the given level. The output can be
// "stdout", "stderr" or a file path. If errorOutput is not nil, entries at
// error level or above are also written there.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, errorLevelWriter{errorOutput})
	}

	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q: %v", level, err))
	}
	log = zerolog.New(out).Level(logLevel).With().Timestamp().Caller().Logger()
	if panicOnInvalidChars {
		log = log.Hook(invalidCharHook{})
	}
	Infof("logger initialized with level %s and output %s", level, output)
}

// Logger returns the underlying zerolog logger, for the rare callers that
// need direct access.
func Logger() *zerolog.Logger { return &log }

// Level returns the level the global logger was initialized with.
func Level() string { return log.GetLevel().String() }

// Debug logs a message at debug level, formatting operands like fmt.Sprint.
func Debug(args ...any) { log.Debug().Msg(fmt.Sprint(args...)) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...any) { log.Debug().Msgf(template, args...) }

// Debugw logs a message at debug level with alternating key/value pairs.
func Debugw(msg string, keyvalues ...any) { log.Debug().Fields(keyvalues).Msg(msg) }

// Info logs a message at info level, formatting operands like fmt.Sprint.
func Info(args ...any) { log.Info().Msg(fmt.Sprint(args...)) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...any) { log.Info().Msgf(template, args...) }

// Infow logs a message at info level with alternating key/value pairs.
func Infow(msg string, keyvalues ...any) { log.Info().Fields(keyvalues).Msg(msg) }

// Warn logs a message at warn level, formatting operands like fmt.Sprint.
func Warn(args ...any) { log.Warn().Msg(fmt.Sprint(args...)) }

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...any) { log.Warn().Msgf(template, args...) }

// Warnw logs a message at warn level with alternating key/value pairs.
func Warnw(msg string, keyvalues ...any) { log.Warn().Fields(keyvalues).Msg(msg) }

// Error logs a message at error level, formatting operands like fmt.Sprint.
func Error(args ...any) { log.Error().Msg(fmt.Sprint(args...)) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...any) { log.Error().Msgf(template, args...) }

// Errorw logs an error with an accompanying message at error level.
func Errorw(err error, msg string) { log.Error().Err(err).Msg(msg) }

// Fatal logs a message at fatal level and exits the program.
func Fatal(args ...any) { log.Fatal().Msg(fmt.Sprint(args...)) }

// Fatalf logs a formatted message at fatal level and exits the program.
func Fatalf(template string, args ...any) { log.Fatal().Msgf(template, args...) }

// Fatalw logs an error with an accompanying message at fatal level and
// exits the program.
func Fatalw(err error, msg string) { log.Fatal().Err(err).Msg(msg) }
