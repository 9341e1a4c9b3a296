package llm_input

import (
	"time"

	"github.com/google/uuid"
)

// LLMInputGenerator defines the interface for generating model-ready JSON
type LLMInputGenerator interface {
	GenerateInput(records []Record, config GeneratorConfig) (*LLMInput, error)
	GenerateChunks(records []Record, config GeneratorConfig) ([]*LLMInput, error)
	DetectCleanFields(record Record) []string
	EstimateTokenCount(input *LLMInput) int
	ToJSON(input *LLMInput, compact bool) ([]byte, error)
}

// Record represents a single data record with its normalized fields
type Record struct {
	RowIndex     int                    `json:"_row_index"`
	OriginalData map[string]interface{} `json:"original_data,omitempty"`
	CleanedData  map[string]interface{} `json:"cleaned_data"`
}

// GeneratorConfig contains configuration for JSON generation
type GeneratorConfig struct {
	// Only include clean fields (reduces token count)
	OnlyCleanFields bool `json:"only_clean_fields"`

	// Maximum records per chunk
	ChunkSize int `json:"chunk_size"`

	// Fields to include (if empty, auto-detect clean* fields)
	FieldsToInclude []string `json:"fields_to_include,omitempty"`

	// Compact mode: minimal whitespace
	CompactMode bool `json:"compact_mode"`

	// Job the records belong to; a random ID is used when unset
	JobID uuid.UUID `json:"job_id,omitempty"`

	// Normalizer identification copied into the metadata
	RefineryVersion string `json:"refinery_version,omitempty"`
	Fingerprint     string `json:"fingerprint,omitempty"`
}

// LLMInput represents the JSON structure handed to the model
type LLMInput struct {
	Metadata InputMetadata `json:"metadata"`
	Records  []CleanRecord `json:"records"`
	Stats    InputStats    `json:"stats"`
}

// InputMetadata contains context about the data
type InputMetadata struct {
	JobID           uuid.UUID `json:"job_id"`
	TotalRecords    int       `json:"total_records"`
	ChunkNumber     int       `json:"chunk_number,omitempty"`
	TotalChunks     int       `json:"total_chunks,omitempty"`
	Fields          []string  `json:"fields"`
	RefineryVersion string    `json:"refinery_version,omitempty"`
	Fingerprint     string    `json:"fingerprint,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
	Version         string    `json:"version"`
}

// CleanRecord represents a single record with only clean fields
type CleanRecord struct {
	RowIndex int                    `json:"_row_index"`
	Data     map[string]interface{} `json:"data"`
	Original map[string]interface{} `json:"original,omitempty"`
}

// InputStats provides statistics about the generated input
type InputStats struct {
	TotalRecords       int      `json:"total_records"`
	EstimatedTokens    int      `json:"estimated_tokens"`
	TokenizerEncoding  string   `json:"tokenizer_encoding"`
	AvgFieldsPerRecord float64  `json:"avg_fields_per_record"`
	CleanFieldsUsed    []string `json:"clean_fields_used"`
}

// DefaultGeneratorConfig returns a configuration optimized for token efficiency
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		OnlyCleanFields: true,
		ChunkSize:       100,
		CompactMode:     true,
	}
}

// WithChunkSize creates a config with custom chunk size
func (c GeneratorConfig) WithChunkSize(size int) GeneratorConfig {
	c.ChunkSize = size
	return c
}

// WithFields creates a config with specific fields
func (c GeneratorConfig) WithFields(fields []string) GeneratorConfig {
	c.FieldsToInclude = fields
	return c
}

// WithJob ties the generated inputs to a job and normalizer configuration
func (c GeneratorConfig) WithJob(jobID uuid.UUID, refineryVersion, fingerprint string) GeneratorConfig {
	c.JobID = jobID
	c.RefineryVersion = refineryVersion
	c.Fingerprint = fingerprint
	return c
}
