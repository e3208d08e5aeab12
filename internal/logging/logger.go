package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. "release" mode logs JSON at info level,
// anything else logs colored console output at debug level.
func New(mode string) (*zap.Logger, error) {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// Sync flushes buffered entries. Errors from syncing stdout/stderr are ignored.
func Sync(log *zap.Logger) {
	if log != nil {
		_ = log.Sync()
	}
}
