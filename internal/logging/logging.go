// Package logging is a process-wide, level-gated printf logger backed by zap.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = mustBuild("console")
	logger = sugar.Desugar()
)

func mustBuild(encoding string) *zap.SugaredLogger {
	l, err := build(encoding)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func build(encoding string) (*zap.Logger, error) {
	if encoding != "json" {
		encoding = "console"
	}
	zc := zap.Config{
		Level:             level,
		Encoding:          encoding,
		DisableCaller:     true,
		DisableStacktrace: true,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

// ParseLevel maps debug|info|warn|error to a zap level, defaulting to info.
func ParseLevel(raw string) zapcore.Level {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(raw))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Init sets the level and rebuilds the logger with the given encoding
// ("console" or "json").
func Init(lvl, encoding string) error {
	level.SetLevel(ParseLevel(lvl))
	l, err := build(encoding)
	if err != nil {
		return err
	}
	use(l)
	return nil
}

// InitFromEnv sets the log level based on LOG_LEVEL (debug|info|warn|error)
// and the encoding from LOG_ENCODING.
func InitFromEnv() {
	_ = Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_ENCODING"))
}

// Logger exposes the underlying zap logger for structured call sites.
func Logger() *zap.Logger {
	return logger
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = logger.Sync()
}

func use(l *zap.Logger) {
	logger = l
	sugar = l.Sugar()
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	sugar.Fatalf(format, args...)
}
