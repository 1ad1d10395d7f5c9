// Package logging configures the run loggers: human-readable console output
// plus a structured per-run log file replacing ad-hoc report text.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// RunLogger returns a logger that writes both to the console and to a
// structured per-run log file <dir>/<name>_log_<timestamp>.jsonl. The file
// writer is serialized, so workers may log concurrently. The returned closer
// owns the file handle.
func RunLogger(dir, name string, verbose bool) (zerolog.Logger, io.Closer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_log_%s.jsonl", name, time.Now().Format("2006_01_02_15_04_05")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	multi := zerolog.MultiLevelWriter(console, file)
	logger := zerolog.New(zerolog.SyncWriter(multi)).Level(level).With().Timestamp().Logger()

	logger.Debug().Str("log_file", path).Msg("run log opened")
	return logger, file, nil
}
