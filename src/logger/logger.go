package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"market-pulse/src/models"

	"github.com/sirupsen/logrus"
)

// -----------------------------------------------------------------------------

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

// root returns the process-wide logrus instance shared by every named logger.
func root() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006/01/02 15:04:05",
		})
		base.SetLevel(logrus.InfoLevel)
	})
	return base
}

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name  string
	entry *logrus.Entry
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. When config is an *models.MConfig
// its log_level is applied to the shared backend.
func NewLogger(config interface{}, name string) *Logger {
	if cfg, ok := config.(*models.MConfig); ok && cfg != nil && cfg.LogLevel != "" {
		SetLevel(cfg.LogLevel)
	}
	return &Logger{
		name:  name,
		entry: root().WithField("component", name),
	}
}

// -----------------------------------------------------------------------------

// SetLevel accepts DEBUG, INFO, WARNING, ERROR (case-insensitive).
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		root().SetLevel(logrus.DebugLevel)
	case "WARNING", "WARN":
		root().SetLevel(logrus.WarnLevel)
	case "ERROR":
		root().SetLevel(logrus.ErrorLevel)
	default:
		root().SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects every logger, tests use io.Discard.
func SetOutput(w io.Writer) {
	root().SetOutput(w)
}

// -----------------------------------------------------------------------------

// Named derives a child logger, e.g. "Scheduler" -> "Scheduler-news".
func (l *Logger) Named(suffix string) *Logger {
	return NewLogger(nil, l.name+"-"+suffix)
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.entry.Error("CRITICAL: " + fmt.Sprintf(format, args...))
	os.Exit(1)
}
