package slogutil

import (
	"io"
	"log/slog"

	"cedx/internal/config"
	"cedx/internal/paths"
)

// LoggerFactory creates the loggers a cedx command needs and owns the files
// behind them. Precedence for levels: CLI flag > config > info.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		root:     root,
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// AppLogger returns a logger writing to stderr (in the configured format) and
// to <root>/.cedx/logs/cedx.log.
// If the log file cannot be opened the stderr logger is returned alone.
func (f *LoggerFactory) AppLogger(stderr io.Writer) *slog.Logger {
	level := f.effectiveLevel()
	console := NewFormatLogger(stderr, f.config.Logging.Format, level).Handler()
	if f.root == "" {
		return slog.New(console)
	}

	if _, err := paths.EnsureDir(paths.GetLogsDir(f.root)); err != nil {
		return slog.New(console)
	}

	fileLogger, closer, err := f.createFileLogger(paths.GetAppLogPath(f.root), level)
	if err != nil {
		return slog.New(console)
	}
	f.closers = append(f.closers, closer)

	return NewTeeLogger(console, fileLogger.Handler())
}

// DiagnosticLogger opens a fresh per-export diagnostic log for document at
// debug level. On failure it returns a discard logger together with the error;
// callers treat that error as non-fatal.
func (f *LoggerFactory) DiagnosticLogger(document string) (*slog.Logger, io.Closer, error) {
	if f.root == "" {
		return NewDiscardLogger(), nopCloser{}, nil
	}
	return OpenDiagnosticLog(paths.GetDiagnosticLogPath(f.root, document))
}

// OpenDiagnosticLog truncates or creates path and returns a debug-level logger
// on it. On failure it returns a discard logger, a no-op closer, and the error.
func OpenDiagnosticLog(path string) (*slog.Logger, io.Closer, error) {
	logger, file, err := CreateFileLogger(path, slog.LevelDebug)
	if err != nil {
		return NewDiscardLogger(), nopCloser{}, err
	}
	return logger, file, nil
}

func (f *LoggerFactory) createFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if f.config.Logging.MaxSize != "" {
		return NewFileLoggerWithRotation(path, level, f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	}
	return NewFileLogger(path, level)
}

func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
