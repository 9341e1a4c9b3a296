package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/queue"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/hibiken/asynq"
)

// NormalizeFilePayload is the body of a normalize task
type NormalizeFilePayload struct {
	FilePath    string `json:"file_path"`
	TextField   string `json:"text_field,omitempty"`
	Deduplicate *bool  `json:"deduplicate,omitempty"`
	Force       bool   `json:"force,omitempty"`
}

// TaskOptions controls how normalize tasks are enqueued
type TaskOptions struct {
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

// NewNormalizeFileTask builds a task that normalizes one file in a worker
func NewNormalizeFileTask(payload NormalizeFilePayload, opts TaskOptions) (*asynq.Task, error) {
	if payload.FilePath == "" {
		return nil, apperrors.InvalidInput("file path is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to encode task payload")
	}

	if opts.Queue == "" {
		opts.Queue = queue.QueueDefault
	}
	taskOpts := []asynq.Option{asynq.Queue(opts.Queue), asynq.MaxRetry(opts.MaxRetry)}
	if opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(opts.Timeout))
	}

	return asynq.NewTask(queue.TaskTypeNormalizeFile, data, taskOpts...), nil
}

// HandleNormalizeFileTask processes a normalize task. Errors that a retry
// cannot fix are wrapped with asynq.SkipRetry.
func (s *Service) HandleNormalizeFileTask(ctx context.Context, task *asynq.Task) error {
	var payload NormalizeFilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := s.ProcessFile(ctx, ProcessRequest{
		FilePath:    payload.FilePath,
		TextField:   payload.TextField,
		Deduplicate: payload.Deduplicate,
		Force:       payload.Force,
	})
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if w := task.ResultWriter(); w != nil {
		if data, err := json.Marshal(result); err == nil {
			if _, err := w.Write(data); err != nil {
				s.logger.Warn("failed to write task result", "error", err)
			}
		}
	}

	s.logger.Info("normalize task done",
		slog.String("job_id", result.JobID.String()),
		slog.Bool("reused", result.Reused))

	return nil
}

func permanent(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) ||
		apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat) ||
		apperrors.HasCode(err, apperrors.ErrCodeFileParseError) ||
		apperrors.HasCode(err, apperrors.ErrCodeMissingDependency)
}
