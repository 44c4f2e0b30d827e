// Package logging configures the application's slog handler: console
// plus a dated log file, so detailed traces survive restarts.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const logFilePerm = 0o644

// Setup builds a logger writing to stderr and a dated file under dir
// (created if needed). The returned close function releases the file.
func Setup(dir string, debug bool) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := CurrentLogFile(dir)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, file), &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)

	logger.Info("logging initialized", slog.String("log_file", path))

	return logger, file.Close, nil
}

// CurrentLogFile returns today's log file path under dir.
func CurrentLogFile(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("ccrelay_%s.log", time.Now().Format("20060102")))
}
