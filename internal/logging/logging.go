package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a zap
// level. An empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// New builds a console logger writing to stderr at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return zap.New(newCore(zapcore.AddSync(os.Stderr), lvl)), nil
}

func newCore(out zapcore.WriteSyncer, lvl zapcore.Level) zapcore.Core {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), out, zap.NewAtomicLevelAt(lvl))
}
