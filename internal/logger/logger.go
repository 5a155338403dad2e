package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the production logger used by the CLI and the HTTP server.
func New() *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.NewProductionConfig()
	config.EncoderConfig = encoderConfig

	log, _ := config.Build()
	return log.Sugar()
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
