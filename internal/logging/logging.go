// Package logging builds the zap loggers used across the bridge.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at level. Encoding "json" gives the production
// configuration, "console" the development one.
func New(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch encoding {
	case "json", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log encoding %q", encoding)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	// Diagnostics go to stderr so stdout stays free for compiler output.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
