package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the shared log backend.
type LogOptions struct {
	// Directory enables a rotating log file when non-empty.
	Directory  string
	FileName   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool

	// Console receives a copy of every line.  Defaults to stderr.
	Console io.Writer
}

var (
	logMu   sync.RWMutex
	logOut  io.Writer = os.Stderr
	rotator *lumberjack.Logger

	// backendLog is the logging backend used to create all subsystem
	// loggers.  It writes through logWriter so the destination can change
	// after loggers have been handed out.
	backendLog = slog.NewBackend(logWriter{})

	logger = backendLog.Logger("PGTE")
)

// logWriter forwards to the currently configured destination.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logMu.RLock()
	w := logOut
	logMu.RUnlock()
	return w.Write(p)
}

// NewSubsystemLogger returns a logger tagged with subsystem that writes to
// the shared backend.
func NewSubsystemLogger(subsystem string) slog.Logger {
	return backendLog.Logger(subsystem)
}

// InitLogging points the shared backend at the console and, when a
// directory is configured, a size-rotated log file.
func InitLogging(opts LogOptions) error {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	out := console
	var rot *lumberjack.Logger
	if opts.Directory != "" {
		if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		name := opts.FileName
		if name == "" {
			name = "peersgate.log"
		}
		rot = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Directory, name),
			MaxSize:    opts.MaxSizeMB,
			MaxAge:     opts.MaxAgeDays,
			MaxBackups: opts.MaxBackups,
			Compress:   opts.Compress,
		}
		out = io.MultiWriter(console, rot)
	}
	logMu.Lock()
	old := rotator
	logOut = out
	rotator = rot
	logMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// CloseLogging flushes and closes the rotating log file, if any.
func CloseLogging() error {
	logMu.Lock()
	defer logMu.Unlock()
	logOut = os.Stderr
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

// SetLogLevels parses level and applies it to every logger passed in.
func SetLogLevels(level string, loggers ...slog.Logger) error {
	lvl, ok := slog.LevelFromString(strings.ToLower(strings.TrimSpace(level)))
	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}
	logger.SetLevel(lvl)
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
	return nil
}

func Logf(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}
