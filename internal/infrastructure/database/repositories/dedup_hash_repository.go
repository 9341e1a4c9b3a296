package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/domain"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/deduplication"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DedupHashRepository implements the deduplication HashRepository using GORM
type DedupHashRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ deduplication.HashRepository = (*DedupHashRepository)(nil)

// NewDedupHashRepository creates a new repository instance
func NewDedupHashRepository(db *gorm.DB, logger *slog.Logger) *DedupHashRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DedupHashRepository{
		db:     db,
		logger: logger,
	}
}

// CheckHashExists reports whether any job kept a record with this hash
func (r *DedupHashRepository) CheckHashExists(ctx context.Context, hash string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.DedupHash{}).
		Where("hash = ? AND kept = ?", hash, true).
		Count(&count).
		Error

	if err != nil {
		r.logger.Error("failed to check hash existence",
			slog.String("hash", hash),
			"error", err)
		return false, fmt.Errorf("database query failed: %w", err)
	}

	return count > 0, nil
}

// SaveHashes stores deduplication hashes for a job
func (r *DedupHashRepository) SaveHashes(ctx context.Context, jobID uuid.UUID, hashes []deduplication.HashEntry) error {
	if len(hashes) == 0 {
		return nil
	}

	dedupHashes := make([]domain.DedupHash, 0, len(hashes))
	for _, entry := range hashes {
		dedupHashes = append(dedupHashes, domain.DedupHash{
			ID:               uuid.New(),
			JobID:            jobID,
			Hash:             entry.Hash,
			OriginalRowIndex: entry.OriginalRowIndex,
			Kept:             entry.Kept,
		})
	}

	err := r.db.WithContext(ctx).
		CreateInBatches(dedupHashes, 1000).
		Error

	if err != nil {
		r.logger.Error("failed to save hashes",
			slog.String("job_id", jobID.String()),
			slog.Int("hash_count", len(hashes)),
			"error", err)
		return fmt.Errorf("failed to insert hashes: %w", err)
	}

	r.logger.Info("saved deduplication hashes",
		slog.String("job_id", jobID.String()),
		slog.Int("hash_count", len(hashes)))

	return nil
}

// GetJobHashes retrieves all hashes for a job, in row order
func (r *DedupHashRepository) GetJobHashes(ctx context.Context, jobID uuid.UUID) ([]deduplication.HashEntry, error) {
	var dedupHashes []domain.DedupHash

	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("original_row_index ASC").
		Find(&dedupHashes).
		Error

	if err != nil {
		r.logger.Error("failed to get job hashes",
			slog.String("job_id", jobID.String()),
			"error", err)
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	entries := make([]deduplication.HashEntry, 0, len(dedupHashes))
	for _, dh := range dedupHashes {
		entries = append(entries, deduplication.HashEntry{
			Hash:             dh.Hash,
			OriginalRowIndex: dh.OriginalRowIndex,
			Kept:             dh.Kept,
		})
	}

	return entries, nil
}

// DeleteJobHashes removes all hashes of a job
func (r *DedupHashRepository) DeleteJobHashes(ctx context.Context, jobID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&domain.DedupHash{}).
		Error

	if err != nil {
		r.logger.Error("failed to delete job hashes",
			slog.String("job_id", jobID.String()),
			"error", err)
		return fmt.Errorf("failed to delete hashes: %w", err)
	}

	r.logger.Info("deleted job hashes",
		slog.String("job_id", jobID.String()))

	return nil
}

// GetDuplicateCount returns the number of records a job dropped as duplicates
func (r *DedupHashRepository) GetDuplicateCount(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.DedupHash{}).
		Where("job_id = ? AND kept = ?", jobID, false).
		Count(&count).
		Error

	if err != nil {
		r.logger.Error("failed to get duplicate count",
			slog.String("job_id", jobID.String()),
			"error", err)
		return 0, fmt.Errorf("database query failed: %w", err)
	}

	return count, nil
}
