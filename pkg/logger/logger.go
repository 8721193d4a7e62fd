// Package logger wraps zap with the field-constructor surface used across
// this repository's packages.
package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how a Logger is constructed.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "json" or "console"
}

// Logger wraps a zap.SugaredLogger-free zap.Logger for structured, leveled logging.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger from Config.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Encoding = "console"
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.Encoding = "json"
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Named returns a logger scoped to the given component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Field constructors, re-exported so call sites never import zap directly.
func String(key, val string) zap.Field            { return zap.String(key, val) }
func Int(key string, val int) zap.Field           { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field       { return zap.Int64(key, val) }
func Float64(key string, val float64) zap.Field   { return zap.Float64(key, val) }
func Bool(key string, val bool) zap.Field         { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}
func Time(key string, val time.Time) zap.Field { return zap.Time(key, val) }
func Any(key string, val interface{}) zap.Field { return zap.Any(key, val) }
func Error(err error) zap.Field                 { return zap.Error(err) }
