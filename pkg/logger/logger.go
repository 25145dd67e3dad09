package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates the service logger. Development gets human-readable console
// output; every other environment logs JSON lines. An empty or unknown
// level means info.
func New(serviceName, environment, level string) *Logger {
	var output io.Writer = os.Stdout
	if environment == "development" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return &Logger{
		Logger: zerolog.New(output).Level(lvl).With().Timestamp().Str("service", serviceName).Logger(),
	}
}

// NewWithWriter logs JSON lines at debug level to w, for tests asserting on output
func NewWithWriter(serviceName string, w io.Writer) *Logger {
	return &Logger{
		Logger: zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger(),
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent tags entries with the emitting component, e.g. "scheduler"
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("component", component).Logger(),
	}
}

// WithPayroll tags entries with the payroll they concern
func (l *Logger) WithPayroll(payrollID string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("payroll_id", payrollID).Logger(),
	}
}
