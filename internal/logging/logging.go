package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how the service logs.
type Options struct {
	Level      string
	Format     string // "text" or "json"
	Dir        string // empty disables the rotated file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a thin printf-style wrapper over a logrus entry.
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// New builds a Logger writing to stdout and, when opts.Dir is set, to a
// lumberjack-rotated alert-service.log inside it.
func New(opts Options) (*Logger, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create logs folder failed: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "alert-service.log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(file, os.Stdout)
		closer = file
	}

	l, err := NewWithWriter(opts, w)
	if err != nil {
		return nil, err
	}
	l.closer = closer
	return l, nil
}

// NewWithWriter builds a Logger writing only to w.
func NewWithWriter(opts Options, w io.Writer) (*Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(level)
	if opts.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	return &Logger{entry: logrus.NewEntry(base)}, nil
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(base)}
}

// WithField returns a child logger carrying key=value on every line.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields is WithField for several keys.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

// Fatalf logs and exits the process.
func (l *Logger) Fatalf(format string, args ...any) { l.entry.Fatalf(format, args...) }

// Close flushes the rotated file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
