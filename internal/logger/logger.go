package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Console output is human readable outside
// production; when filePath is set a rotating JSON file sink is added.
func New(level, filePath string, production bool) *zap.Logger {
	lvl := ParseLevel(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var consoleEncoder zapcore.Encoder
	if production {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lvl),
	}
	if strings.TrimSpace(filePath) != "" {
		rotator := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), lvl))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// ParseLevel maps LOG_LEVEL style strings ("INFO", "warning", ...) to a zap level.
// Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "critical", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
