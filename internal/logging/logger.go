// Package logging provides structured logging for both CLI and GUI modes.
//
// Log lines are written to the console and, once InitFileLog has run, to a
// rotating file under the application data directory. The sidecar relay
// additionally mirrors its lines onto the event bus for the in-app viewer;
// that path is wired in internal/sidecar, not here.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/siri-labs/siri-billing/internal/constants"
)

var (
	// fileWriter is the rotating file sink shared by every Logger.
	fileWriter *lumberjack.Logger
	// fileWriterMu protects fileWriter
	fileWriterMu sync.RWMutex
)

// Logger wraps zerolog with a fixed source tag.
type Logger struct {
	zlog   zerolog.Logger
	source string
}

// NewLogger creates a logger tagged with the given source
// ("shell", "sidecar", "update", ...).
func NewLogger(source string) *Logger {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(console, fileLevelWriter{})).
		With().
		Timestamp().
		Str("source", source).
		Logger()

	return &Logger{
		zlog:   logger,
		source: source,
	}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// With creates a child logger context with additional fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// Source returns the logger's source tag.
func (l *Logger) Source() string {
	return l.source
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// InitFileLog attaches the rotating file sink. dir must already exist (see
// config.EnsureLogDirectory); the file is capped at constants.LogMaxSizeMB.
// Calling it again is a no-op.
func InitFileLog(path string) {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()

	if fileWriter != nil {
		return
	}

	fileWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
	}
}

// CloseFileLog detaches and closes the rotating file sink.
func CloseFileLog() {
	fileWriterMu.Lock()
	defer fileWriterMu.Unlock()

	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
}

// FileLogPath returns the active log file path, or "" when file logging
// is not initialized.
func FileLogPath() string {
	fileWriterMu.RLock()
	defer fileWriterMu.RUnlock()

	if fileWriter != nil {
		return fileWriter.Filename
	}
	return ""
}

// fileLevelWriter forwards to the current rotating file, if any. Loggers
// hold this indirection so InitFileLog can run after loggers are created.
type fileLevelWriter struct{}

func (fileLevelWriter) Write(p []byte) (int, error) {
	fileWriterMu.RLock()
	defer fileWriterMu.RUnlock()

	if fileWriter == nil {
		return len(p), nil
	}
	return fileWriter.Write(p)
}

var _ io.Writer = fileLevelWriter{}

func init() {
	// Default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
