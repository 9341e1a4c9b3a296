package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/domain"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/deduplication"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/llm_input"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/refinery"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/parsers"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service normalizes dataset files end to end
type Service struct {
	pipeline  *refinery.Pipeline
	parser    FileParser
	files     FileStore
	config    Config
	logger    *slog.Logger
	cache     TextCache
	jobs      JobStore
	dedup     deduplication.Deduplicator
	generator llm_input.LLMInputGenerator
}

// Option configures optional collaborators
type Option func(*Service)

// WithCache consults c before normalizing a text
func WithCache(c TextCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithJobStore records job state in store
func WithJobStore(store JobStore) Option {
	return func(s *Service) { s.jobs = store }
}

// WithDeduplicator drops empty and duplicate texts after normalization
func WithDeduplicator(d deduplication.Deduplicator) Option {
	return func(s *Service) { s.dedup = d }
}

// WithGenerator writes model input chunks next to the normalized output
func WithGenerator(g llm_input.LLMInputGenerator) Option {
	return func(s *Service) { s.generator = g }
}

// NewService creates a corpus service. The pipeline, parser and file store
// are required; everything else is optional.
func NewService(pipeline *refinery.Pipeline, parser FileParser, files FileStore, config Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if pipeline == nil || parser == nil || files == nil {
		return nil, apperrors.InvalidInput("corpus service needs a pipeline, a parser and a file store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if config.TextField == "" {
		config.TextField = defaults.TextField
	}
	if config.OutputField == "" {
		config.OutputField = defaults.OutputField
	}
	if config.Workers < 1 {
		config.Workers = defaults.Workers
	}
	if config.ChunkSize < 1 {
		config.ChunkSize = defaults.ChunkSize
	}

	s := &Service{
		pipeline: pipeline,
		parser:   parser,
		files:    files,
		config:   config,
		logger:   logger.With(slog.String("service", "corpus")),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// ProcessFile parses, normalizes, optionally deduplicates and writes the
// outputs of one file
func (s *Service) ProcessFile(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.FilePath) == "" {
		return nil, apperrors.InvalidInput("file path is required")
	}

	textField := req.TextField
	if textField == "" {
		textField = s.config.TextField
	}
	deduplicate := s.config.Deduplicate
	if req.Deduplicate != nil {
		deduplicate = *req.Deduplicate
	}

	fileHash, err := hashFile(req.FilePath)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{
		FileHash:        fileHash,
		RefineryVersion: s.pipeline.GetVersion(),
		Fingerprint:     s.pipeline.Fingerprint(),
	}

	job, reused, err := s.prepareJob(ctx, req, fileHash, domain.JobSettings{
		TextField:   textField,
		Deduplicate: deduplicate,
		Fingerprint: s.pipeline.Fingerprint(),
		Config:      domain.JSONB(s.pipeline.GetEffectiveConfig()),
	})
	if err != nil {
		return nil, err
	}
	if reused {
		result.JobID = job.ID
		result.Reused = true
		result.TotalRecords = job.TotalRecords
		result.ProcessedRecords = job.ProcessedRecords
		result.EmptyRecords = job.EmptyRecords
		result.DuplicateRecords = job.DuplicateRecords
		result.CacheHits = job.CacheHits
		result.OutputPath = job.OutputPath
		result.Duration = time.Since(start)
		return result, nil
	}
	result.JobID = job.ID

	logger := s.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("file", filepath.Base(req.FilePath)))

	if err := s.run(ctx, logger, req.FilePath, textField, deduplicate, result); err != nil {
		logger.Error("file processing failed", "error", err)
		s.markFailed(ctx, job.ID, err)
		return nil, err
	}

	if s.jobs != nil {
		if err := s.jobs.MarkCompleted(ctx, job.ID, result.Counts(), result.OutputPath); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)

	logger.Info("file processed",
		slog.Int("total_records", result.TotalRecords),
		slog.Int("processed_records", result.ProcessedRecords),
		slog.Int("empty_records", result.EmptyRecords),
		slog.Int("duplicate_records", result.DuplicateRecords),
		slog.Int("cache_hits", result.CacheHits),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, filePath, textField string, deduplicate bool, result *ProcessResult) error {
	jobID := result.JobID

	s.setStatus(ctx, jobID, domain.JobStatusNormalizing)

	parsed, err := s.parser.ParseFile(ctx, filePath)
	if err != nil {
		return err
	}
	result.TotalRecords = len(parsed.Records)
	result.SkippedRows = parsed.SkippedRows

	logger.Info("file parsed",
		slog.String("format", parsed.Format),
		slog.Int("records", len(parsed.Records)),
		slog.Int("skipped_rows", parsed.SkippedRows))

	cleaned, hits, err := s.normalizeAll(ctx, parsed.Records, textField, result.Fingerprint)
	if err != nil {
		return err
	}
	result.CacheHits = hits

	kept := make([]int, 0, len(cleaned))
	if deduplicate && s.dedup != nil {
		s.setStatus(ctx, jobID, domain.JobStatusDeduplicating)

		dedupResult, err := s.dedup.Deduplicate(ctx, jobID, s.dedupRecords(cleaned))
		if err != nil {
			return err
		}
		for _, record := range dedupResult.Records {
			kept = append(kept, record.RowIndex)
		}
		result.EmptyRecords = dedupResult.Stats.EmptyRecords
		result.DuplicateRecords = dedupResult.Stats.Level1Duplicates + dedupResult.Stats.Level2Duplicates
	} else {
		for i, text := range cleaned {
			if text == "" {
				result.EmptyRecords++
			}
			kept = append(kept, i)
		}
	}
	result.ProcessedRecords = len(kept)

	output, err := s.encodeNormalized(parsed.Records, cleaned, kept)
	if err != nil {
		return err
	}

	result.OutputPath, err = s.files.SaveProcessedFile(ctx, jobID.String(), storage.KindNormalized, NormalizedFileName, output)
	if err != nil {
		return err
	}

	if s.generator != nil && len(kept) > 0 {
		result.LLMInputFiles, err = s.writeChunks(ctx, parsed.Records, cleaned, kept, textField, result)
		if err != nil {
			return err
		}
	}

	return nil
}

// normalizeAll runs the pipeline over the text field of every record with
// bounded concurrency. Output order matches input order.
func (s *Service) normalizeAll(ctx context.Context, records []parsers.Record, textField, fingerprint string) ([]string, int, error) {
	cleaned := make([]string, len(records))
	var hits atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, record := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			raw, ok := record[textField]
			if !ok || raw == nil {
				return nil
			}
			text := fmt.Sprint(raw)

			if s.cache != nil {
				value, found, err := s.cache.Get(gctx, fingerprint, text)
				if err != nil {
					s.logger.Debug("cache lookup failed", slog.Int("row_index", i), "error", err)
				} else if found {
					cleaned[i] = value
					hits.Add(1)
					return nil
				}
			}

			cleaned[i] = s.pipeline.Normalize(raw)

			if s.cache != nil {
				// cache writes are best effort
				_ = s.cache.Set(gctx, fingerprint, text, cleaned[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return cleaned, int(hits.Load()), nil
}

func (s *Service) dedupRecords(cleaned []string) []deduplication.Record {
	records := make([]deduplication.Record, len(cleaned))
	for i, text := range cleaned {
		records[i] = deduplication.Record{
			RowIndex: i,
			Data:     map[string]interface{}{s.config.OutputField: text},
		}
	}
	return records
}

// encodeNormalized writes one JSON object per kept record: the original
// columns plus the normalized field and the source row index
func (s *Service) encodeNormalized(records []parsers.Record, cleaned []string, kept []int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	for _, i := range kept {
		row := make(map[string]interface{}, len(records[i])+2)
		for k, v := range records[i] {
			row[k] = v
		}
		row[s.config.OutputField] = cleaned[i]
		row["_row_index"] = i

		if err := encoder.Encode(row); err != nil {
			return nil, apperrors.InternalWrap(err, fmt.Sprintf("failed to encode row %d", i))
		}
	}

	return buf.Bytes(), nil
}

func (s *Service) writeChunks(ctx context.Context, records []parsers.Record, cleaned []string, kept []int, textField string, result *ProcessResult) ([]string, error) {
	inputs := make([]llm_input.Record, 0, len(kept))
	for _, i := range kept {
		inputs = append(inputs, llm_input.BuildRecordFromMap(i,
			map[string]interface{}{textField: records[i][textField]},
			map[string]interface{}{s.config.OutputField: cleaned[i]}))
	}

	genConfig := llm_input.DefaultGeneratorConfig().
		WithChunkSize(s.config.ChunkSize).
		WithFields([]string{s.config.OutputField}).
		WithJob(result.JobID, result.RefineryVersion, result.Fingerprint)

	chunks, err := s.generator.GenerateChunks(inputs, genConfig)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to generate model input")
	}

	paths := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		data, err := s.generator.ToJSON(chunk, genConfig.CompactMode)
		if err != nil {
			return nil, apperrors.InternalWrap(err, "failed to encode model input")
		}

		name := fmt.Sprintf(chunkFilePattern, chunk.Metadata.ChunkNumber)
		path, err := s.files.SaveProcessedFile(ctx, result.JobID.String(), storage.KindLLMInput, name, data)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// prepareJob finds or creates the job for a file. A completed job with the
// same text field, dedup setting and fingerprint is reused unless the request
// forces a rerun.
func (s *Service) prepareJob(ctx context.Context, req ProcessRequest, fileHash string, settings domain.JobSettings) (*domain.NormalizationJob, bool, error) {
	if s.jobs == nil {
		return &domain.NormalizationJob{ID: uuid.New(), FileHash: fileHash}, false, nil
	}

	existing, err := s.jobs.GetByFileHash(ctx, fileHash)
	switch {
	case err == nil:
		if existing.Status == domain.JobStatusCompleted && existing.MatchesSettings(settings) && !req.Force {
			s.logger.Info("file already processed",
				slog.String("job_id", existing.ID.String()),
				slog.String("fingerprint", existing.Fingerprint))
			return existing, true, nil
		}
		if err := s.jobs.Restart(ctx, existing.ID, settings); err != nil {
			return nil, false, err
		}
		existing.Status = domain.JobStatusQueued
		existing.TextField = settings.TextField
		existing.Deduplicate = settings.Deduplicate
		existing.Fingerprint = settings.Fingerprint
		existing.Config = settings.Config
		return existing, false, nil

	case apperrors.HasCode(err, apperrors.ErrCodeRecordNotFound):
		job := &domain.NormalizationJob{
			OriginalFilename: filepath.Base(req.FilePath),
			FilePath:         req.FilePath,
			FileHash:         fileHash,
			Status:           domain.JobStatusQueued,
			TextField:        settings.TextField,
			Deduplicate:      settings.Deduplicate,
			RefineryVersion:  s.pipeline.GetVersion(),
			Fingerprint:      settings.Fingerprint,
			Config:           settings.Config,
		}
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, false, err
		}
		return job, false, nil

	default:
		return nil, false, err
	}
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Warn("failed to update job status",
			slog.String("job_id", id.String()),
			slog.String("status", status),
			"error", err)
	}
}

func (s *Service) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	if s.jobs == nil {
		return
	}
	// record the failure even when ctx was cancelled
	if err := s.jobs.MarkFailed(context.WithoutCancel(ctx), id, cause); err != nil {
		s.logger.Warn("failed to mark job as failed",
			slog.String("job_id", id.String()),
			"error", err)
	}
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.InvalidInput("file not found: " + path)
		}
		return "", apperrors.StorageError(err, "failed to open file")
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", apperrors.StorageError(err, "failed to read file")
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
