package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewZapLogger(debug bool) *zap.SugaredLogger {
	stderr := zapcore.AddSync(os.Stderr)
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}

	developmentCfg := zap.NewDevelopmentEncoderConfig()
	developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(developmentCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, stderr, level),
	)

	return zap.New(core).Sugar()
}

// RedactToken keeps a short prefix so log lines can still be correlated.
func RedactToken(token string) string {
	const keep = 6
	if token == "" {
		return ""
	}
	if len(token) <= keep {
		return "[REDACTED]"
	}
	return token[:keep] + "...[REDACTED]"
}
