package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes the logger built by NewLogger.
type Options struct {
	// FilePath enables a rotating JSON log file next to stderr output.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger builds a production ready structured logger.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.FilePath == "" {
		return cfg.Build()
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    orDefault(opts.MaxSizeMB, 100),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 7),
		LocalTime:  true,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), writer, cfg.Level)

	return cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

// WithOperation enriches the logger with operation and request identifiers.
func WithOperation(logger *zap.Logger, operation, requestID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	return logger.With(fields...)
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
