// Package logging wraps log/slog for NetEnum. Besides the usual text and
// JSON output it provides StreamHandler, which tees scan progress into the
// live log of a run.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel is a configured level name.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config is the logging section of the configuration file.
// Output is "stdout", "stderr" or a file path.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatText, Output: "stdout"}
}

// Logger is a slog.Logger that remembers the config it was built from.
type Logger struct {
	*slog.Logger
	config Config
}

// ParseLevel maps a level name onto a slog.Level, falling back to info.
func ParseLevel(level LogLevel) slog.Level {
	var l slog.Level
	name := strings.ToLower(string(level))
	if name == "warning" {
		name = string(LevelWarn)
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), logDirPerm); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// New builds a logger writing to cfg.Output.
func New(cfg Config) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewWithWriter(cfg, w), nil
}

// NewWithWriter builds a logger writing to w. cfg.Output is ignored.
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	if cfg.Format == FormatJSON {
		return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts)), config: cfg}
	}
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, opts)), config: cfg}
}

// NewDefault builds a logger from DefaultConfig.
func NewDefault() *Logger {
	return NewWithWriter(DefaultConfig(), os.Stdout)
}

func (l *Logger) Config() Config {
	return l.config
}

// WithFields returns a logger carrying the given key/value pairs.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{Logger: l.With(fields...), config: l.config}
}

// WithHandler returns a logger with the same config writing through h.
func (l *Logger) WithHandler(h slog.Handler) *Logger {
	return &Logger{Logger: slog.New(h), config: l.config}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

func (l *Logger) WithScanID(scanID string) *Logger {
	return l.WithFields("scan_id", scanID)
}

func (l *Logger) WithNetwork(network string) *Logger {
	return l.WithFields("network", network)
}

// ErrorHost logs a failure that concerns a single scanned host.
func (l *Logger) ErrorHost(msg, ip string, err error, fields ...any) {
	l.Error(msg, append([]any{"host", ip, "error", err}, fields...)...)
}

// ErrorDiscovery logs a failure of the host discovery sweep.
func (l *Logger) ErrorDiscovery(msg, network string, err error, fields ...any) {
	l.Error(msg, append([]any{"network", network, "error", err}, fields...)...)
}

// ErrorStorage logs a failure to write results or scan logs.
func (l *Logger) ErrorStorage(msg string, err error, fields ...any) {
	l.Error(msg, append([]any{"component", "storage", "error", err}, fields...)...)
}

var defaultLogger = NewDefault()

// SetDefault replaces the package-level logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

func Debug(msg string, fields ...any) { defaultLogger.Debug(msg, fields...) }

func Info(msg string, fields ...any) { defaultLogger.Info(msg, fields...) }

func Warn(msg string, fields ...any) { defaultLogger.Warn(msg, fields...) }

func Error(msg string, fields ...any) { defaultLogger.Error(msg, fields...) }
