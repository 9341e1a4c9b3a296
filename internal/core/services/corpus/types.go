package corpus

import (
	"context"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/domain"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/parsers"
	"github.com/google/uuid"
)

// Output file names
const (
	NormalizedFileName = "normalized.jsonl"
	chunkFilePattern   = "chunk_%03d.json"
)

// TextCache memoizes normalized text per pipeline fingerprint
type TextCache interface {
	Get(ctx context.Context, fingerprint, text string) (string, bool, error)
	Set(ctx context.Context, fingerprint, text, normalized string) error
}

// JobStore persists job state
type JobStore interface {
	Create(ctx context.Context, job *domain.NormalizationJob) error
	GetByFileHash(ctx context.Context, fileHash string) (*domain.NormalizationJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Restart(ctx context.Context, id uuid.UUID, settings domain.JobSettings) error
	MarkCompleted(ctx context.Context, id uuid.UUID, counts domain.JobCounts, outputPath string) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

// FileParser reads a dataset file into records
type FileParser interface {
	ParseFile(ctx context.Context, filePath string) (*parsers.ParseResult, error)
}

// FileStore writes job outputs
type FileStore interface {
	SaveProcessedFile(ctx context.Context, jobID string, kind string, filename string, data []byte) (string, error)
}

// Config controls how files are processed
type Config struct {
	TextField   string `json:"text_field"`
	OutputField string `json:"output_field"`
	Deduplicate bool   `json:"deduplicate"`
	Workers     int    `json:"workers"`
	ChunkSize   int    `json:"chunk_size"`
}

// DefaultConfig returns the default processing configuration
func DefaultConfig() Config {
	return Config{
		TextField:   "text",
		OutputField: "cleanText",
		Deduplicate: true,
		Workers:     4,
		ChunkSize:   100,
	}
}

// ProcessRequest describes one file to normalize. Zero values fall back to
// the service configuration.
type ProcessRequest struct {
	FilePath    string
	TextField   string
	Deduplicate *bool

	// Force reprocesses a file already completed with the same configuration
	Force bool
}

// ProcessResult summarizes a processed file
type ProcessResult struct {
	JobID            uuid.UUID     `json:"job_id"`
	FileHash         string        `json:"file_hash"`
	RefineryVersion  string        `json:"refinery_version"`
	Fingerprint      string        `json:"fingerprint"`
	TotalRecords     int           `json:"total_records"`
	SkippedRows      int           `json:"skipped_rows"`
	ProcessedRecords int           `json:"processed_records"`
	EmptyRecords     int           `json:"empty_records"`
	DuplicateRecords int           `json:"duplicate_records"`
	CacheHits        int           `json:"cache_hits"`
	OutputPath       string        `json:"output_path"`
	LLMInputFiles    []string      `json:"llm_input_files,omitempty"`
	Reused           bool          `json:"reused"`
	Duration         time.Duration `json:"duration"`
}

// Counts returns the job counters of the result
func (r *ProcessResult) Counts() domain.JobCounts {
	return domain.JobCounts{
		TotalRecords:     r.TotalRecords,
		ProcessedRecords: r.ProcessedRecords,
		EmptyRecords:     r.EmptyRecords,
		DuplicateRecords: r.DuplicateRecords,
		CacheHits:        r.CacheHits,
	}
}
