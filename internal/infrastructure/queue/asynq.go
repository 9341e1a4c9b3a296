package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/config"
	"github.com/hibiken/asynq"
)

// Task types
const (
	TaskTypeNormalizeFile = "corpus:normalize"
)

// Queue names, highest priority first
const (
	QueueCritical = "critical"
	QueueHigh     = "high"
	QueueDefault  = "default"
)

// AsynqClient wraps the Asynq client for enqueuing tasks
type AsynqClient struct {
	client *asynq.Client
	logger *slog.Logger
}

// RedisOpt builds the Asynq connection options from the queue section
func RedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

// NewAsynqClient creates a new Asynq client
func NewAsynqClient(cfg *config.QueueConfig, logger *slog.Logger) (*AsynqClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := asynq.NewClient(RedisOpt(cfg))

	logger.Info("asynq client created",
		slog.String("redis_host", cfg.RedisHost),
		slog.Int("redis_port", cfg.RedisPort),
	)

	return &AsynqClient{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Asynq client
func (a *AsynqClient) Close() error {
	a.logger.Info("closing asynq client")
	return a.client.Close()
}

// Enqueue adds a task to the queue
func (a *AsynqClient) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return a.EnqueueContext(context.Background(), task, opts...)
}

// EnqueueContext enqueues a task with context
func (a *AsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := a.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		a.logger.Error("failed to enqueue task",
			slog.String("task_type", task.Type()),
			"error", err,
		)
		return nil, err
	}

	a.logger.Debug("task enqueued",
		slog.String("task_id", info.ID),
		slog.String("task_type", task.Type()),
		slog.String("queue", info.Queue),
	)

	return info, nil
}

// AsynqServer wraps the Asynq server for processing tasks
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewAsynqServer creates a new Asynq server
func NewAsynqServer(cfg *config.QueueConfig, logger *slog.Logger) (*AsynqServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	server := asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Concurrency:    cfg.Concurrency,
			Queues:         QueuePriorities(),
			StrictPriority: cfg.StrictPriority,

			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return RetryDelay(n)
			},

			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					slog.String("task_type", task.Type()),
					slog.String("payload", string(task.Payload())),
					"error", err,
				)
			}),

			HealthCheckFunc: func(e error) {
				if e != nil {
					logger.Error("health check failed", "error", e)
				}
			},
			HealthCheckInterval: 20 * time.Second,

			ShutdownTimeout: 25 * time.Second,
		},
	)

	mux := asynq.NewServeMux()

	logger.Info("asynq server created",
		slog.String("redis_host", cfg.RedisHost),
		slog.Int("redis_port", cfg.RedisPort),
		slog.Int("concurrency", cfg.Concurrency),
	)

	return &AsynqServer{
		server: server,
		mux:    mux,
		logger: logger,
	}, nil
}

// QueuePriorities returns the weighted queues served by the worker
func QueuePriorities() map[string]int {
	return map[string]int{
		QueueCritical: 6,
		QueueHigh:     3,
		QueueDefault:  1,
	}
}

// RetryDelay is an exponential backoff: 2s, 4s, 8s, ... capped at ten minutes
func RetryDelay(n int) time.Duration {
	const maxDelay = 10 * time.Minute
	if n < 1 {
		n = 1
	}
	if n > 9 {
		return maxDelay
	}
	d := time.Duration(1<<uint(n)) * time.Second
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// HandleFunc registers a handler function for a task type
func (a *AsynqServer) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	a.mux.HandleFunc(pattern, handler)
	a.logger.Debug("handler registered", slog.String("pattern", pattern))
}

// Use adds a middleware to the mux
func (a *AsynqServer) Use(middleware func(asynq.Handler) asynq.Handler) {
	a.mux.Use(middleware)
}

// Start runs the server until it receives a termination signal
func (a *AsynqServer) Start() error {
	a.logger.Info("starting asynq server")
	if err := a.server.Run(a.mux); err != nil {
		return fmt.Errorf("failed to run asynq server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (a *AsynqServer) Shutdown() {
	a.logger.Info("shutting down asynq server")
	a.server.Shutdown()
}

// LoggingMiddleware logs the duration and outcome of every task
func LoggingMiddleware(logger *slog.Logger) func(asynq.Handler) asynq.Handler {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)

			attrs := []any{
				slog.String("task_type", task.Type()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				logger.Warn("task failed", append(attrs, "error", err)...)
				return err
			}
			logger.Info("task processed", attrs...)
			return nil
		})
	}
}
