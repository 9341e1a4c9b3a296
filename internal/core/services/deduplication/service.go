package deduplication

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service implements the Deduplicator interface
type Service struct {
	config   Config
	hashRepo HashRepository
	logger   *slog.Logger
}

// NewService creates a new deduplication service. hashRepo may be nil, which
// disables cross-job deduplication and hash storage.
func NewService(config Config, hashRepo HashRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   config,
		hashRepo: hashRepo,
		logger:   logger,
	}
}

// Deduplicate drops empty records, then duplicates within the job (level 1),
// then texts already kept by earlier jobs (level 2)
func (s *Service) Deduplicate(ctx context.Context, jobID uuid.UUID, records []Record) (*DeduplicationResult, error) {
	startTime := time.Now()

	s.logger.Info("starting deduplication",
		slog.String("job_id", jobID.String()),
		slog.Int("record_count", len(records)),
		slog.String("strategy", string(s.config.Strategy)))

	if len(records) == 0 {
		return &DeduplicationResult{
			Strategy: s.config.Strategy,
			Records:  []Record{},
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, empty := s.dropEmpty(records)

	if err := s.generateHashes(candidates); err != nil {
		return nil, fmt.Errorf("failed to generate hashes: %w", err)
	}

	// Level 1: within the job
	level1Result := s.deduplicateLevel1(candidates)

	s.logger.Info("level 1 deduplication completed",
		slog.Int("duplicates_removed", level1Result.RemovedCount),
		slog.Int("empty_removed", empty))

	// Level 2: across jobs (if enabled)
	finalRecords := level1Result.Records
	level2Duplicates := 0

	if s.config.EnableLevel2 && s.hashRepo != nil {
		level2Result, err := s.deduplicateLevel2(ctx, finalRecords)
		if err != nil {
			s.logger.Error("level 2 deduplication failed", "error", err)
			// Continue with level 1 results if level 2 fails
		} else {
			finalRecords = level2Result.Records
			level2Duplicates = level2Result.RemovedCount

			s.logger.Info("level 2 deduplication completed",
				slog.Int("duplicates_removed", level2Duplicates))
		}
	}

	if s.config.StoreHashes && s.hashRepo != nil {
		if err := s.storeHashes(ctx, jobID, candidates, finalRecords); err != nil {
			s.logger.Error("failed to store hashes", "error", err)
			// Don't fail the entire operation if hash storage fails
		}
	}

	processingTime := time.Since(startTime).Milliseconds()

	result := &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(finalRecords),
		RemovedCount:      len(records) - len(finalRecords),
		Strategy:          s.config.Strategy,
		Records:           finalRecords,
		Stats: DeduplicationStats{
			Level1Duplicates: level1Result.RemovedCount,
			Level2Duplicates: level2Duplicates,
			EmptyRecords:     empty,
			UniqueRecords:    len(finalRecords),
			ProcessingTimeMs: processingTime,
		},
	}

	s.logger.Info("deduplication completed",
		slog.Int("original_count", result.OriginalCount),
		slog.Int("final_count", result.DeduplicatedCount),
		slog.Int("removed_count", result.RemovedCount),
		slog.Int64("processing_time_ms", processingTime))

	return result, nil
}

func (s *Service) dropEmpty(records []Record) ([]Record, int) {
	if !s.config.DropEmpty {
		return records, 0
	}

	kept := make([]Record, 0, len(records))
	for _, record := range records {
		if isEmptyRecord(record, s.config.CleanFields) {
			continue
		}
		kept = append(kept, record)
	}
	return kept, len(records) - len(kept)
}

// deduplicateLevel1 performs within-job deduplication, keeping first occurrences
func (s *Service) deduplicateLevel1(records []Record) *DeduplicationResult {
	seen := make(map[string]bool)
	unique := make([]Record, 0, len(records))
	duplicates := 0

	for _, record := range records {
		if !seen[record.Hash] {
			seen[record.Hash] = true
			unique = append(unique, record)
		} else {
			duplicates++
			s.logger.Debug("level 1 duplicate found",
				slog.String("hash", record.Hash),
				slog.Int("row_index", record.RowIndex))
		}
	}

	return &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(unique),
		RemovedCount:      duplicates,
		Records:           unique,
	}
}

// deduplicateLevel2 performs cross-job deduplication
func (s *Service) deduplicateLevel2(ctx context.Context, records []Record) (*DeduplicationResult, error) {
	unique := make([]Record, 0, len(records))
	duplicates := 0

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exists, err := s.hashRepo.CheckHashExists(ctx, record.Hash)
		if err != nil {
			s.logger.Error("failed to check hash existence",
				slog.String("hash", record.Hash),
				"error", err)
			// On error, keep the record (fail-open)
			unique = append(unique, record)
			continue
		}

		if !exists {
			unique = append(unique, record)
		} else {
			duplicates++
			s.logger.Debug("level 2 duplicate found",
				slog.String("hash", record.Hash),
				slog.Int("row_index", record.RowIndex))
		}
	}

	return &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(unique),
		RemovedCount:      duplicates,
		Records:           unique,
	}, nil
}

// generateHashes generates hashes for all records
func (s *Service) generateHashes(records []Record) error {
	for i := range records {
		hash, err := generateHash(records[i], s.config.CleanFields, s.config)
		if err != nil {
			return fmt.Errorf("failed to hash record %d: %w", records[i].RowIndex, err)
		}
		records[i].Hash = hash
	}
	return nil
}

// storeHashes stores deduplication hashes in the database
func (s *Service) storeHashes(ctx context.Context, jobID uuid.UUID, original, final []Record) error {
	keptIndices := make(map[int]bool, len(final))
	for _, record := range final {
		keptIndices[record.RowIndex] = true
	}

	entries := make([]HashEntry, 0, len(original))
	for _, record := range original {
		entries = append(entries, HashEntry{
			Hash:             record.Hash,
			OriginalRowIndex: record.RowIndex,
			Kept:             keptIndices[record.RowIndex],
		})
	}

	return s.hashRepo.SaveHashes(ctx, jobID, entries)
}

// GetConfig returns the current configuration
func (s *Service) GetConfig() Config {
	return s.config
}
