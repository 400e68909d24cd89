package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровень логирования
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var zapLevels = map[LogLevel]zapcore.Level{
	LevelDebug: zap.DebugLevel,
	LevelInfo:  zap.InfoLevel,
	LevelWarn:  zap.WarnLevel,
	LevelError: zap.ErrorLevel,
	LevelFatal: zap.FatalLevel,
}

// ParseLevel разбирает уровень из строки конфигурации
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger представляет структурированный логгер поверх zap
type Logger struct {
	z *zap.Logger
}

// Field представляет поле логирования
type Field = zap.Field

// New создает новый логгер. format: "json" или "console"
func New(level LogLevel, format string) (*Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevels[level])
	// Консольный чат пишет в stdout, поэтому логи уходят в stderr
	cfg.OutputPaths = []string{"stderr"}

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{z: z}, nil
}

// NewNop создает логгер, который ничего не пишет (для тестов)
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// FromZap оборачивает готовый zap.Logger
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Debug записывает debug сообщение
func (l *Logger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, fields...)
}

// Info записывает info сообщение
func (l *Logger) Info(msg string, fields ...Field) {
	l.z.Info(msg, fields...)
}

// Warn записывает warning сообщение
func (l *Logger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, fields...)
}

// Error записывает error сообщение
func (l *Logger) Error(msg string, fields ...Field) {
	l.z.Error(msg, fields...)
}

// Fatal записывает fatal сообщение и завершает программу
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.z.Fatal(msg, fields...)
}

// WithFields возвращает логгер с предустановленными полями
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Sync сбрасывает буферы
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// Вспомогательные функции для создания полей
func String(key, value string) Field {
	return zap.String(key, value)
}

func Int(key string, value int) Field {
	return zap.Int(key, value)
}

func Int64(key string, value int64) Field {
	return zap.Int64(key, value)
}

func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

func Error(err error) Field {
	return zap.Error(err)
}

func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

func Any(key string, value interface{}) Field {
	return zap.Any(key, value)
}
