package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Initialize creates and configures the default logger.
// Logs go to stderr so that stdout stays reserved for normalized output.
func Initialize(env string, level string) *slog.Logger {
	return InitializeWithWriter(os.Stderr, env, level)
}

// InitializeWithWriter is Initialize with an explicit sink
func InitializeWithWriter(w io.Writer, env string, level string) *slog.Logger {
	var handler slog.Handler

	if env == "production" {
		// JSON logging for production
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     ParseLevel(level, slog.LevelInfo),
			AddSource: false,
		})
	} else {
		// Pretty text logging for development
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     ParseLevel(level, slog.LevelDebug),
			AddSource: true,
		})
	}

	l := slog.New(handler)

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)

	return l
}

// ParseLevel maps a level name to a slog.Level, returning fallback for unknown names
func ParseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// Get returns the default logger instance
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()

	if l == nil {
		return Initialize("development", "")
	}
	return l
}

// Discard returns a logger that drops everything, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// WithFields returns a new logger with additional fields
func WithFields(fields map[string]interface{}) *slog.Logger {
	logger := Get()

	for key, value := range fields {
		logger = logger.With(slog.Any(key, value))
	}

	return logger
}

// NewServiceLogger creates a logger for a specific service
func NewServiceLogger(serviceName string) *slog.Logger {
	return Get().With(slog.String("service", serviceName))
}
