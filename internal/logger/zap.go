package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger backed by zap. Defaults to zap's production
// config (JSON encoding, info level) and is narrowed by the options below;
// at wiring time only WithLevel is applied, from config.LogConfig.Level.
func NewLogger(opts ...Option) (Logger, error) {
	cfg := zap.NewProductionConfig()

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	built, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &zapLogger{logger: built}, nil
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, convertFields(fields...)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, convertFields(fields...)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, convertFields(fields...)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, convertFields(fields...)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.logger.Fatal(msg, convertFields(fields...)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(convertFields(fields...)...)}
}

func convertFields(fields ...Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}

// WithLevel sets the minimum log level.
func WithLevel(level string) Option {
	return func(cfg any) error {
		if c, ok := cfg.(*zap.Config); ok {
			var zapLevel zapcore.Level
			if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
				return err
			}
			c.Level = zap.NewAtomicLevelAt(zapLevel)
		}
		return nil
	}
}

// WithDevelopment switches to the human-readable development encoder.
func WithDevelopment(enabled bool) Option {
	return func(cfg any) error {
		if c, ok := cfg.(*zap.Config); ok {
			c.Development = enabled
			if enabled {
				c.EncoderConfig = zap.NewDevelopmentEncoderConfig()
			}
		}
		return nil
	}
}

// WithOutputPaths sets the sink(s) logs are written to.
func WithOutputPaths(paths ...string) Option {
	return func(cfg any) error {
		if c, ok := cfg.(*zap.Config); ok {
			c.OutputPaths = paths
		}
		return nil
	}
}
