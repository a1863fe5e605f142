// Package logging builds the zap loggers used by every pipeline component.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLog builds a console logger writing to stdout at the given level.
func InitLog(lvl zap.AtomicLevel) *zap.Logger {
	loggerCfg := &zap.Config{
		Level:    lvl,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	plain, err := loggerCfg.Build(zap.AddStacktrace(zap.DPanicLevel))
	if err != nil {
		panic(err)
	}

	return plain
}

// ParseLevel converts a level name such as "debug" or "WARN" into an AtomicLevel.
// An empty name yields info.
func ParseLevel(name string) (zap.AtomicLevel, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	lvl, err := zap.ParseAtomicLevel(name)
	if err != nil {
		return zap.NewAtomicLevel(), fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New builds a logger for the named level and installs it as the zap global.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := InitLog(lvl)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
