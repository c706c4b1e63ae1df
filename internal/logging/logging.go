// Package logging builds the rotating file loggers used across pm.
//
// Front ends run as short-lived processes sharing one log directory, so logs
// go through lumberjack for size-based rotation rather than growing a single
// file forever.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures logger construction.
type Options struct {
	// Dir is the log directory. Empty disables the file sink.
	Dir string

	// Verbose mirrors log lines to stderr.
	Verbose bool

	// MaxSizeMB caps an individual log file before rotation (default 5).
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept (default 3).
	MaxBackups int
}

// New returns a prefixed logger writing to a rotating file under opts.Dir.
// The returned closer flushes and releases the file sink; it is a no-op when
// only stderr is in use.
func New(prefix string, opts Options) (*log.Logger, io.Closer, error) {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 5
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}

	var sinks []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "pm.log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		sinks = append(sinks, lj)
		closer = lj
	}

	if opts.Verbose || len(sinks) == 0 {
		sinks = append(sinks, os.Stderr)
	}

	logger := log.New(io.MultiWriter(sinks...), prefix, log.LstdFlags)
	return logger, closer, nil
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
