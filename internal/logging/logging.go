// Package logging builds the logrus logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects level, output format and destination.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewFormatter returns a JSON formatter for "json" and a plain text one otherwise.
func NewFormatter(format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return &logrus.TextFormatter{
			TimestampFormat: "Jan 02 15:04:05",
			FullTimestamp:   true,
			DisableColors:   true,
		}
	}
}

// ParseLevel maps a level name to a logrus level, falling back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// New constructs a logger. Output defaults to stderr so stdout stays free
// for command results.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.Formatter = NewFormatter(opts.Format)
	log.Level = ParseLevel(opts.Level)
	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stderr)
	}
	return log
}

// Discard returns a logger that drops everything, for tests and defaults.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
