package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for --log-file
const (
	MaxLogSizeMB   = 10
	MaxLogBackups  = 3
	MaxLogAgeDays  = 14
	CompressedLogs = true
)

// OpenFile returns a size-rotated writer for path, creating its directory.
func OpenFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxLogSizeMB,
		MaxBackups: MaxLogBackups,
		MaxAge:     MaxLogAgeDays,
		Compress:   CompressedLogs,
	}, nil
}

// Setup builds a logger from configuration values. With an empty path it
// writes to stderr and the returned closer is a no-op.
func Setup(level, format, path string) (*Logger, io.Closer, error) {
	opts := Options{
		Level:  ParseLevel(level),
		Format: ParseFormat(format),
		Output: os.Stderr,
	}
	if path == "" {
		return New(opts), nopCloser{}, nil
	}

	w, err := OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	opts.Output = w
	return New(opts), w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
