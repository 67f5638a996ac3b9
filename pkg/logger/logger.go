package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charlesng35/accounthub/pkg/redact"
)

var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
)

// SensitiveFields lists request keys that are always masked when request data is logged.
var SensitiveFields = []string{
	"password",
	"password_confirm",
	"old_password",
	"photo",
	"token",
	"code",
	"verification_code",
}

func init() { // usable before Init runs
	globalLogger = zap.NewNop()
}

// Init configures the global logger. Level accepts zap level names; format is
// "json" (default) or "console".
func Init(level, format string) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		cfg = zap.NewDevelopmentConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Replace(logger)
	return nil
}

// Replace swaps the global logger, returning the previous one.
func Replace(l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}

	mu.Lock()
	defer mu.Unlock()

	prev := globalLogger
	globalLogger = l
	return prev
}

// Logger returns the configured global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Redacted builds a field holding data with SensitiveFields and any extra fields masked.
func Redacted(key string, data map[string]any, extra ...string) zap.Field {
	fields := append(append([]string(nil), SensitiveFields...), extra...)
	return zap.Any(key, redact.HideFields(data, fields...))
}

// Info logs an informational message using the global logger.
func Info(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

// Error logs an error message using the global logger.
func Error(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}

// Warn logs a warning message using the global logger.
func Warn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

// Debug logs a debug message using the global logger.
func Debug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}
