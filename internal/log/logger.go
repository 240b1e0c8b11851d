// Package log builds the structured diagnostics logger.
//
// Diagnostics (connect, asset loads, exit reason) go through zap. Console
// output meant for the operator, like the instructions and pose lines,
// does not.
package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by New.
const (
	LevelDebug  = "debug"
	LevelInfo   = "info"
	LevelWarn   = "warn"
	LevelError  = "error"
	LevelSilent = "silent"
)

// New builds a JSON logger writing to output ("stderr", "stdout" or a
// file path). The "silent" level returns a no-op logger.
func New(level, output string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == LevelSilent {
		return zap.NewNop(), nil
	}

	zapLevel, err := toZapLevel(level)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = "stderr"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

func toZapLevel(level string) (zapcore.Level, error) {
	switch level {
	case LevelDebug:
		return zap.DebugLevel, nil
	case "", LevelInfo:
		return zap.InfoLevel, nil
	case LevelWarn:
		return zap.WarnLevel, nil
	case LevelError:
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
