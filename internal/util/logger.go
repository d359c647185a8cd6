package util

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the default logger.
type LogOptions struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
	sugar  = logger.Sugar()
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// ParseLevel parses a string log level. Unknown values map to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger installs the default logger: console output on stderr plus
// an optional rotated JSON file.
func InitLogger(opts LogOptions) {
	level.SetLevel(ParseLevel(opts.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		if err := EnsureDir(filepath.Dir(opts.File)); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
				Compress:   true,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
		}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	SetLogger(l)
}

// SetLogger replaces the default logger. Tests use it to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	sugar = l.Sugar()
}

// SetLevel changes the level of the default logger at runtime.
func SetLevel(s string) {
	level.SetLevel(ParseLevel(s))
}

// L returns the structured logger for callers that attach fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.WithOptions(zap.AddCallerSkip(-1))
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a debug message using the default logger.
func Debug(format string, args ...interface{}) {
	s().Debugf(format, args...)
}

// Info logs an info message using the default logger.
func Info(format string, args ...interface{}) {
	s().Infof(format, args...)
}

// Warn logs a warning message using the default logger.
func Warn(format string, args ...interface{}) {
	s().Warnf(format, args...)
}

// Error logs an error message using the default logger.
func Error(format string, args ...interface{}) {
	s().Errorf(format, args...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = s().Sync()
}
