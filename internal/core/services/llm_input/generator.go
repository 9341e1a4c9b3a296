package llm_input

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// promptOverhead approximates the instructions wrapped around every chunk
const promptOverhead = 300

// Generator implements the LLMInputGenerator interface
type Generator struct {
	counter TokenCounter
	logger  *slog.Logger
}

// NewGenerator creates a new model input generator counting tokens with tiktoken
func NewGenerator(logger *slog.Logger) *Generator {
	return NewGeneratorWithCounter(NewTiktokenCounter(), logger)
}

// NewGeneratorWithCounter creates a generator with a custom token counter
func NewGeneratorWithCounter(counter TokenCounter, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if counter == nil {
		counter = NewCharCounter()
	}

	return &Generator{
		counter: counter,
		logger:  logger,
	}
}

// GenerateInput creates JSON input for the model from normalized records
func (g *Generator) GenerateInput(records []Record, config GeneratorConfig) (*LLMInput, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records provided")
	}

	fieldsToInclude := config.FieldsToInclude
	if len(fieldsToInclude) == 0 {
		fieldsToInclude = g.DetectCleanFields(records[0])
	}

	if len(fieldsToInclude) == 0 {
		return nil, fmt.Errorf("no clean fields detected")
	}

	g.logger.Debug("generating model input",
		slog.Int("record_count", len(records)),
		slog.Int("field_count", len(fieldsToInclude)),
		slog.Bool("only_clean_fields", config.OnlyCleanFields))

	cleanRecords := make([]CleanRecord, 0, len(records))
	totalFields := 0

	for _, record := range records {
		cleanData := make(map[string]interface{})

		for _, field := range fieldsToInclude {
			if value, exists := record.CleanedData[field]; exists {
				cleanData[field] = value
				totalFields++
			}
		}

		// Skip records with no data
		if len(cleanData) == 0 {
			g.logger.Warn("skipping record with no clean data",
				slog.Int("row_index", record.RowIndex))
			continue
		}

		cleanRecord := CleanRecord{
			RowIndex: record.RowIndex,
			Data:     cleanData,
		}
		if !config.OnlyCleanFields && len(record.OriginalData) > 0 {
			cleanRecord.Original = record.OriginalData
		}

		cleanRecords = append(cleanRecords, cleanRecord)
	}

	jobID := config.JobID
	if jobID == uuid.Nil {
		jobID = uuid.New()
	}

	input := &LLMInput{
		Metadata: InputMetadata{
			JobID:           jobID,
			TotalRecords:    len(cleanRecords),
			Fields:          fieldsToInclude,
			RefineryVersion: config.RefineryVersion,
			Fingerprint:     config.Fingerprint,
			GeneratedAt:     time.Now().UTC(),
			Version:         "1.0",
		},
		Records: cleanRecords,
	}

	avgFields := 0.0
	if len(cleanRecords) > 0 {
		avgFields = float64(totalFields) / float64(len(cleanRecords))
	}

	input.Stats = InputStats{
		TotalRecords:       len(cleanRecords),
		EstimatedTokens:    g.EstimateTokenCount(input),
		TokenizerEncoding:  g.counter.Encoding(),
		AvgFieldsPerRecord: avgFields,
		CleanFieldsUsed:    fieldsToInclude,
	}

	g.logger.Debug("model input generated",
		slog.Int("clean_records", len(cleanRecords)),
		slog.Int("estimated_tokens", input.Stats.EstimatedTokens))

	return input, nil
}

// DetectCleanFields detects fields starting with "clean", sorted by name
func (g *Generator) DetectCleanFields(record Record) []string {
	cleanFields := make([]string, 0)

	for field := range record.CleanedData {
		if strings.HasPrefix(strings.ToLower(field), "clean") {
			cleanFields = append(cleanFields, field)
		}
	}

	// If no clean fields in CleanedData, check OriginalData
	if len(cleanFields) == 0 {
		for field := range record.OriginalData {
			if strings.HasPrefix(strings.ToLower(field), "clean") {
				cleanFields = append(cleanFields, field)
			}
		}
	}

	sort.Strings(cleanFields)
	return cleanFields
}

// EstimateTokenCount counts the tokens of the serialized input plus a fixed
// prompt overhead
func (g *Generator) EstimateTokenCount(input *LLMInput) int {
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		g.logger.Warn("failed to marshal for token estimation", "error", err)
		return 0
	}

	return g.counter.CountTokens(string(jsonBytes)) + promptOverhead
}

// GenerateChunks splits records into multiple model inputs
func (g *Generator) GenerateChunks(records []Record, config GeneratorConfig) ([]*LLMInput, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be greater than 0")
	}

	// All chunks of one call share the job ID
	if config.JobID == uuid.Nil {
		config.JobID = uuid.New()
	}

	totalRecords := len(records)
	totalChunks := (totalRecords + config.ChunkSize - 1) / config.ChunkSize

	g.logger.Info("generating chunks",
		slog.Int("total_records", totalRecords),
		slog.Int("chunk_size", config.ChunkSize),
		slog.Int("total_chunks", totalChunks))

	chunks := make([]*LLMInput, 0, totalChunks)

	for i := 0; i < totalChunks; i++ {
		start := i * config.ChunkSize
		end := start + config.ChunkSize
		if end > totalRecords {
			end = totalRecords
		}

		input, err := g.GenerateInput(records[start:end], config)
		if err != nil {
			return nil, fmt.Errorf("failed to generate chunk %d: %w", i, err)
		}

		input.Metadata.ChunkNumber = i + 1
		input.Metadata.TotalChunks = totalChunks

		chunks = append(chunks, input)
	}

	return chunks, nil
}

// ToJSON serializes the model input to JSON
func (g *Generator) ToJSON(input *LLMInput, compact bool) ([]byte, error) {
	if compact {
		return json.Marshal(input)
	}
	return json.MarshalIndent(input, "", "  ")
}

// ToJSONString serializes to JSON string
func (g *Generator) ToJSONString(input *LLMInput, compact bool) (string, error) {
	jsonBytes, err := g.ToJSON(input, compact)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

// ValidateInput checks if the generated input is valid
func (g *Generator) ValidateInput(input *LLMInput) error {
	if input == nil {
		return fmt.Errorf("input is nil")
	}

	if len(input.Records) == 0 {
		return fmt.Errorf("no records in input")
	}

	if len(input.Metadata.Fields) == 0 {
		return fmt.Errorf("no fields specified in metadata")
	}

	rowIndices := make(map[int]bool)
	for _, record := range input.Records {
		if rowIndices[record.RowIndex] {
			return fmt.Errorf("duplicate row_index: %d", record.RowIndex)
		}
		rowIndices[record.RowIndex] = true

		if len(record.Data) == 0 {
			return fmt.Errorf("record at row_index %d has no data", record.RowIndex)
		}
	}

	return nil
}

// BuildRecordFromMap creates a Record from a map (helper for integration)
func BuildRecordFromMap(rowIndex int, originalData, cleanedData map[string]interface{}) Record {
	return Record{
		RowIndex:     rowIndex,
		OriginalData: originalData,
		CleanedData:  cleanedData,
	}
}

// ExtractCleanFields extracts only clean* fields from a map
func ExtractCleanFields(data map[string]interface{}) map[string]interface{} {
	clean := make(map[string]interface{})
	for key, value := range data {
		if strings.HasPrefix(strings.ToLower(key), "clean") {
			clean[key] = value
		}
	}
	return clean
}
