package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: JSON to stdout, plus a JSON file
// when LogConfig.File is set. The cleanup function closes the file.
func SetupLogger(cfg LogConfig) (*slog.Logger, func() error) {
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level,
	})
	if cfg.File == "" {
		return slog.New(stdoutHandler), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stdoutHandler)
		logger.Error("Failed to open log file, using stdout only", "error", err, "file", cfg.File)
		return logger, func() error { return nil }
	}

	return SetupLoggerWithWriters(os.Stdout, file, cfg.Level), file.Close
}

// SetupLoggerWithWriters fans JSON records out to both writers.
func SetupLoggerWithWriters(stdout, file io.Writer, level slog.Level) *slog.Logger {
	stdoutHandler := slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stdoutHandler, fileHandler))
}
