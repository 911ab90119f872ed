// Package logging builds the zap loggers used by both binaries.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger writing to stderr at level.
func New(level string) (*zap.Logger, error) {
	cfg, err := config(level)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// NewFile logs to path instead of stderr. The client needs this because
// the terminal belongs to the UI. An empty path discards everything.
func NewFile(path, level string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg, err := config(level)
	if err != nil {
		return nil, err
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func config(level string) (zap.Config, error) {
	cfg := zap.NewProductionConfig()
	if level == "" {
		return cfg, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return cfg, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg, nil
}
