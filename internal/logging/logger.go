package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ultratune/ultratune/internal/config"
)

// NewLogger builds a zap logger based on level/format settings.
// Extra output paths (files or stderr/stdout) are appended to the default sink.
func NewLogger(level, format string, outputs ...string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.Set(strings.ToLower(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		format = "console"
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.Encoding = format
	for _, out := range outputs {
		if out = strings.TrimSpace(out); out != "" {
			cfg.OutputPaths = append(cfg.OutputPaths, out)
		}
	}

	return cfg.Build()
}

// FromConfig builds the logger described by the logging section.
func FromConfig(cfg config.LoggingConfig) (*zap.Logger, error) {
	return NewLogger(cfg.Level, cfg.Format, cfg.File)
}
