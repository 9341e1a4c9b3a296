package repositories

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/domain"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRepository persists normalization jobs
type JobRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJobRepository creates a new repository instance
func NewJobRepository(db *gorm.DB, logger *slog.Logger) *JobRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job
func (r *JobRepository) Create(ctx context.Context, job *domain.NormalizationJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		r.logger.Error("failed to create job",
			slog.String("filename", job.OriginalFilename),
			"error", err)
		return apperrors.DatabaseError(err)
	}

	r.logger.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("filename", job.OriginalFilename))

	return nil
}

// GetByID loads a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.NormalizationJob, error) {
	var job domain.NormalizationJob

	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("job")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &job, nil
}

// GetByFileHash finds the job created for a file with this content hash
func (r *JobRepository) GetByFileHash(ctx context.Context, fileHash string) (*domain.NormalizationJob, error) {
	var job domain.NormalizationJob

	err := r.db.WithContext(ctx).First(&job, "file_hash = ?", fileHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("job")
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &job, nil
}

// UpdateStatus moves a job to a new status
func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !domain.IsValidStatus(status) {
		return apperrors.InvalidInput("invalid job status: " + status)
	}

	return r.updates(ctx, id, map[string]interface{}{"status": status})
}

// Restart puts an existing job back in the queue under new settings
func (r *JobRepository) Restart(ctx context.Context, id uuid.UUID, settings domain.JobSettings) error {
	return r.updates(ctx, id, map[string]interface{}{
		"status":       domain.JobStatusQueued,
		"text_field":   settings.TextField,
		"deduplicate":  settings.Deduplicate,
		"fingerprint":  settings.Fingerprint,
		"config":       settings.Config,
		"error":        "",
		"completed_at": nil,
	})
}

// MarkCompleted records the final counters and output location
func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, counts domain.JobCounts, outputPath string) error {
	now := time.Now().UTC()

	return r.updates(ctx, id, map[string]interface{}{
		"status":            domain.JobStatusCompleted,
		"total_records":     counts.TotalRecords,
		"processed_records": counts.ProcessedRecords,
		"empty_records":     counts.EmptyRecords,
		"duplicate_records": counts.DuplicateRecords,
		"cache_hits":        counts.CacheHits,
		"output_path":       outputPath,
		"error":             "",
		"completed_at":      &now,
	})
}

// MarkFailed stores the failure message
func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := time.Now().UTC()

	return r.updates(ctx, id, map[string]interface{}{
		"status":       domain.JobStatusFailed,
		"error":        message,
		"completed_at": &now,
	})
}

func (r *JobRepository) updates(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.NormalizationJob{}).
		Where("id = ?", id).
		Updates(values)

	if result.Error != nil {
		r.logger.Error("failed to update job",
			slog.String("job_id", id.String()),
			"error", result.Error)
		return apperrors.DatabaseError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.RecordNotFound("job")
	}

	r.logger.Debug("job updated",
		slog.String("job_id", id.String()),
		slog.Any("fields", keys(values)))

	return nil
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
