// midimap/pkg/logging/logging.go

package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// LogFile is where ConfigureLogger writes when the output is "file".
const LogFile = "midimap.log"

var Logger zerolog.Logger

func init() {
	logLevel := zerolog.InfoLevel
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if level, err := zerolog.ParseLevel(envLevel); err == nil {
			logLevel = level
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ConfigureLogger sets the global level and points both Logger and the zerolog global logger at
// the requested output ("console" or "file").
func ConfigureLogger(logLevel, logOutput string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		return fmt.Errorf("Invalid log level %q", logLevel)
	}

	var out io.Writer
	switch logOutput {
	case "console":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "3:04PM"}
	case "file":
		file, err := os.OpenFile(LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = file
	default:
		return fmt.Errorf("Invalid log output option %q", logOutput)
	}

	zerolog.SetGlobalLevel(level)
	Logger = zerolog.New(out).With().Timestamp().Logger()
	log.Logger = Logger
	return nil
}

// NewTraceLogger returns the logger used for per-message translation traces. Lines carry no
// level or timestamp, only the message text; log them with Log() so the global level does not
// filter them. With nonBlocking set, writes go through a ring
// buffer and are dropped when w cannot keep up.
//
// The returned Closer flushes buffered lines and stops the ring buffer. It never closes w.
func NewTraceLogger(w io.Writer, nonBlocking bool) (zerolog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if nonBlocking {
		dw := diode.NewWriter(writerOnly{w}, 4096, 10*time.Millisecond, func(missed int) {
			Logger.Warn().Int("missed", missed).Msg("Dropped translation trace lines")
		})
		w, closer = dw, dw
	}
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
	}
	return zerolog.New(cw), closer
}

// writerOnly hides any Close method of the wrapped writer from diode.Writer.Close.
type writerOnly struct{ io.Writer }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
