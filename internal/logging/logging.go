// Package logging builds the tfsctl hclog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tphakala/go-tfs/internal/config"
)

// New returns a logger writing to stderr or, for output "file", to a
// rotating log file. The returned close function releases the file.
func New(name string, cfg config.LoggingConfig) (hclog.Logger, func() error, error) {
	switch cfg.Output {
	case config.OutputStderr, "":
		return NewWithWriter(name, cfg, os.Stderr), func() error { return nil }, nil
	case config.OutputFile:
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging output %q requires a file path", cfg.Output)
		}
		if dir := filepath.Dir(cfg.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		w := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		return NewWithWriter(name, cfg, w), w.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown logging output %q", cfg.Output)
	}
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(name string, cfg config.LoggingConfig, w io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     w,
		JSONFormat: cfg.JSON,
	})
}
