package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr, so reports on stdout stay clean.
// format "console" gives human-readable lines; anything else is JSON.
func New(level, format string) *zap.Logger {
	return NewWithSink(level, format, zapcore.Lock(os.Stderr))
}

// NewWithSink is New with an explicit destination.
func NewWithSink(level, format string, sink zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(newEncoder(format), sink, zap.NewAtomicLevelAt(ParseLevel(level)))
	return zap.New(core)
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if strings.EqualFold(format, "console") {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a zap level.
// Unknown strings default to InfoLevel.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
