package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log level
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel converts a level name to a zap level, defaulting to info
func ParseLevel(level Level) zapcore.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a console logger writing to stderr and, when logPath is set, to a file
func New(level Level, logPath string) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(logFile))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		ParseLevel(level),
	)

	return zap.New(core, zap.AddCaller()), nil
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// StartOperation logs the start of an operation and returns the function that logs its end
func StartOperation(l *zap.Logger, operation string, fields ...zap.Field) func(error) {
	l = OrNop(l)
	startTime := time.Now()

	l.Info("operation_start", append([]zap.Field{zap.String("operation", operation)}, fields...)...)

	return func(err error) {
		endFields := []zap.Field{
			zap.String("operation", operation),
			zap.Duration("duration", time.Since(startTime)),
			zap.Bool("success", err == nil),
		}
		endFields = append(endFields, fields...)

		if err != nil {
			l.Error("operation_failed", append(endFields, zap.Error(err))...)
			return
		}
		l.Info("operation_complete", endFields...)
	}
}
