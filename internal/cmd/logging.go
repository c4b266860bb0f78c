package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/runger/logistix/internal/config"
)

// parseLevel maps a config log level to a slog.Level. Unknown values are
// treated as info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds a text logger writing to w at the configured level.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
}

// newFileLogger opens the log file (log.file, or the default under the data
// dir) for appending. Interactive commands log here so the screen stays
// clean. The returned func closes the file.
func newFileLogger(cfg *config.Config, paths *config.Paths) (*slog.Logger, func(), error) {
	path := logFilePath(cfg, paths)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return newLogger(f, cfg), func() { _ = f.Close() }, nil
}

func logFilePath(cfg *config.Config, paths *config.Paths) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	return paths.LogFile()
}
