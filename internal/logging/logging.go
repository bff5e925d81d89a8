// Package logging builds the zap loggers used across the toolchain.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavour.
type Options struct {
	// Verbose enables debug output.
	Verbose bool
	// JSON switches from the console encoder to JSON lines, for CI.
	JSON bool
	// Quiet drops everything below warnings.
	Quiet bool
}

// New returns a logger writing to stderr. Falls back to a no-op logger if
// zap cannot be configured, so callers never have to handle a nil logger.
func New(opts Options) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.TimeKey = ""

	if opts.JSON {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}

	switch {
	case opts.Verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case opts.Quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
