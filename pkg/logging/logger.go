// Package logging provides session-scoped debug logging for relay components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger writes leveled, structured entries for one component.
// All loggers created in a process share a session id and, by default, a
// single file under ~/.relay/logs/.
type Logger struct {
	sessionID string
	component string
	entry     *logrus.Entry
	file      *os.File
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists. A directory set by
// SetLogDirectory wins over the home default.
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".relay", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// SetLogDirectory overrides the log directory for loggers created
// afterwards. An empty dir restores the home default. It is not safe to
// call concurrently with NewLogger.
func SetLogDirectory(dir string) {
	logDir = dir
	initErr = nil
	initOnce = sync.Once{}
}

// NewLogger creates a logger for component writing to
// <log dir>/<session-id>-relay.log at the given level.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string, level logrus.Level) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, level, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-relay.log", sessID))

	// Append mode: every component of the session shares this file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, level, err), err
	}

	l := newLogger(component, file, level)
	l.file = file
	l.logPath = logPath
	return l, nil
}

// NewWriterLogger creates a logger that writes to w. It never owns w.
func NewWriterLogger(component string, w io.Writer, level logrus.Level) *Logger {
	return newLogger(component, w, level)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger("discard", io.Discard, logrus.PanicLevel)
}

func newLogger(component string, w io.Writer, level logrus.Level) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	sessID := getSessionID()
	return &Logger{
		sessionID: sessID,
		component: component,
		entry: base.WithFields(logrus.Fields{
			"component": component,
			"session":   sessID,
		}),
	}
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, level logrus.Level, err error) *Logger {
	l := newLogger(component, os.Stderr, level)
	l.entry.WithError(err).Warn("failed to initialize file logging, falling back to stderr")
	return l
}

// WithFields returns a child logger that adds fields to every entry.
func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		entry:     l.entry.WithFields(fields),
		logPath:   l.logPath,
	}
}

// WithError returns a child logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		entry:     l.entry.WithError(err),
		logPath:   l.logPath,
	}
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, empty when not file-backed.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times. Child loggers
// made with WithFields never own the file.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// ParseLevel maps a verbosity name to a logrus level. Unknown names map
// to info.
func ParseLevel(verbosity string) logrus.Level {
	switch verbosity {
	case "quiet":
		return logrus.WarnLevel
	case "verbose":
		return logrus.DebugLevel
	case "debug":
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}
