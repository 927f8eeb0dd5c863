// Package logger is the process-wide logger used by every warden module.
// Messages are printf-style and conventionally prefixed with the module tag,
// e.g. logger.Info("[Agents] conversation %s saved", id).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.RWMutex
	std = newDefault()

	closer io.Closer
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Options configures the global logger.
type Options struct {
	Level  string `json:"level"  mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	// Output is "stdout", "stderr" or a file path.
	Output string `json:"output" mapstructure:"output"`
}

// InitLog (re)configures the global logger.
func InitLog(opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var formatter logrus.Formatter
	switch opts.Format {
	case "", "text":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", opts.Format)
	}

	var (
		out io.Writer
		c   io.Closer
	)
	switch opts.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", opts.Output, err)
		}
		out, c = f, f
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	std.SetOutput(out)
	std.SetLevel(level)
	std.SetFormatter(formatter)
	closer = c
	return nil
}

// FlushLog syncs and releases a file-backed output.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if f, ok := closer.(*os.File); ok {
		_ = f.Sync()
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// Logger exposes the underlying logrus logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

func Debug(format string, args ...any) { Logger().Debugf(format, args...) }
func Info(format string, args ...any)  { Logger().Infof(format, args...) }
func Warn(format string, args ...any)  { Logger().Warnf(format, args...) }
func Error(format string, args ...any) { Logger().Errorf(format, args...) }

// DebugX logs with a module field attached.
func DebugX(module, format string, args ...any) {
	Logger().WithField("module", module).Debugf(format, args...)
}

func InfoX(module, format string, args ...any) {
	Logger().WithField("module", module).Infof(format, args...)
}

func WarnX(module, format string, args ...any) {
	Logger().WithField("module", module).Warnf(format, args...)
}

func ErrorX(module, format string, args ...any) {
	Logger().WithField("module", module).Errorf(format, args...)
}
