package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log глобальный логгер. До вызова Init пишет предупреждения в stderr,
// чтобы пакеты могли логировать и в тестах.
var Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// Config конфигурация логгера
type Config struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, stderr, file, discard
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type runIDKey struct{}

// InitWithConfig инициализирует логгер с полной конфигурацией
func InitWithConfig(cfg Config) {
	InitWithWriter(cfg, writerFor(cfg))
}

// InitWithWriter направляет вывод в w; Output игнорируется
func InitWithWriter(cfg Config, w io.Writer) {
	Log = slog.New(newHandler(cfg, w))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writerFor(cfg Config) io.Writer {
	switch cfg.Output {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/netblock.log"
		}
		// Создаём директорию; при ошибке пишем в stderr
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return os.Stderr
		}
		// Ротация через lumberjack
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		// stdout занят отчётом, поэтому логи по умолчанию идут в stderr
		return os.Stderr
	}
}

func newHandler(cfg Config, w io.Writer) slog.Handler {
	lvl := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ContextWithRunID сохраняет идентификатор запуска в контексте
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext возвращает идентификатор запуска или пустую строку
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// WithContext добавляет контекстные данные (run_id, если он есть)
func WithContext(ctx context.Context, args ...any) *slog.Logger {
	l := Log
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With("run_id", id)
	}
	if len(args) > 0 {
		l = l.With(args...)
	}
	return l
}
