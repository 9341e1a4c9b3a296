package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Strategy defines the deduplication strategy
type Strategy string

const (
	StrategyExact     Strategy = "exact"     // Exact match within a job
	StrategyUniversal Strategy = "universal" // Also skip texts seen by earlier jobs
)

// Record represents a normalized record to be deduplicated
type Record struct {
	RowIndex int                    `json:"row_index"`
	Data     map[string]interface{} `json:"data"`
	Hash     string                 `json:"hash,omitempty"`
}

// DeduplicationResult contains the result of deduplication
type DeduplicationResult struct {
	OriginalCount     int                `json:"original_count"`
	DeduplicatedCount int                `json:"deduplicated_count"`
	RemovedCount      int                `json:"removed_count"`
	Strategy          Strategy           `json:"strategy"`
	Records           []Record           `json:"records"`
	Stats             DeduplicationStats `json:"stats"`
}

// DeduplicationStats provides detailed statistics
type DeduplicationStats struct {
	Level1Duplicates int   `json:"level1_duplicates"` // Within the job
	Level2Duplicates int   `json:"level2_duplicates"` // Across jobs
	EmptyRecords     int   `json:"empty_records"`
	UniqueRecords    int   `json:"unique_records"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Config for deduplication service
type Config struct {
	Strategy       Strategy `json:"strategy"`
	CleanFields    []string `json:"clean_fields"`    // Normalized fields used for hashing
	EnableLevel2   bool     `json:"enable_level2"`   // Enable cross-job dedup
	StoreHashes    bool     `json:"store_hashes"`    // Store hashes in DB
	CaseSensitive  bool     `json:"case_sensitive"`  // Case-sensitive comparison (Latin script only)
	TrimWhitespace bool     `json:"trim_whitespace"` // Trim whitespace before hashing
	DropEmpty      bool     `json:"drop_empty"`      // Drop records whose fields normalized to nothing
}

// DefaultConfig returns default deduplication configuration
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyExact,
		CleanFields:    []string{"cleanText"},
		EnableLevel2:   false,
		StoreHashes:    true,
		CaseSensitive:  false,
		TrimWhitespace: true,
		DropEmpty:      true,
	}
}

// HashRepository defines the interface for hash storage
type HashRepository interface {
	// CheckHashExists verifies if a hash exists for any job (universal dedup)
	CheckHashExists(ctx context.Context, hash string) (bool, error)

	// SaveHashes stores deduplication hashes for a job
	SaveHashes(ctx context.Context, jobID uuid.UUID, hashes []HashEntry) error

	// GetJobHashes retrieves all hashes for a specific job
	GetJobHashes(ctx context.Context, jobID uuid.UUID) ([]HashEntry, error)
}

// HashEntry represents a hash entry to be stored
type HashEntry struct {
	Hash             string
	OriginalRowIndex int
	Kept             bool
}

// Deduplicator defines the interface for deduplication operations
type Deduplicator interface {
	// Deduplicate performs deduplication on a set of records
	Deduplicate(ctx context.Context, jobID uuid.UUID, records []Record) (*DeduplicationResult, error)

	// GetConfig returns the current configuration
	GetConfig() Config
}

// generateHash creates a SHA256 hash from the configured record fields
func generateHash(record Record, fields []string, config Config) (string, error) {
	hashData := make(map[string]interface{})

	for _, field := range fields {
		if val, exists := record.Data[field]; exists {
			hashData[field] = normalizeValue(val, config)
		}
	}

	// Marshal to JSON for consistent hashing
	jsonData, err := json.Marshal(hashData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal hash data: %w", err)
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// isEmptyRecord reports whether every configured field is missing or blank
func isEmptyRecord(record Record, fields []string) bool {
	for _, field := range fields {
		val, exists := record.Data[field]
		if !exists || val == nil {
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

// normalizeValue normalizes a value based on configuration
func normalizeValue(val interface{}, config Config) interface{} {
	strVal, ok := val.(string)
	if !ok {
		return val
	}

	if config.TrimWhitespace {
		strVal = strings.TrimSpace(strVal)
	}

	// Arabic has no case; this only folds Latin fragments
	if !config.CaseSensitive {
		strVal = strings.ToLower(strVal)
	}

	return strVal
}
