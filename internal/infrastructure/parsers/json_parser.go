package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// JSONParser parses a JSON array of objects, or a single object
type JSONParser struct {
	config *ParserConfig
}

// NewJSONParser creates a new JSON parser
func NewJSONParser(config *ParserConfig) *JSONParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONParser{
		config: config,
	}
}

// Parse reads and parses a JSON file from disk
func (p *JSONParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openChecked(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses JSON data
func (p *JSONParser) ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error) {
	r, err := skipBOM(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON document")
	}

	var records []Record
	if trimmed[0] == '[' {
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("failed to read JSON: %w", err)
		}

		for decoder.More() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var record Record
			if err := decoder.Decode(&record); err != nil {
				return nil, fmt.Errorf("failed to decode JSON record %d: %w", len(records), err)
			}
			records = append(records, record)
		}

		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("failed to read closing bracket: %w", err)
		}
	} else {
		var record Record
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, fmt.Errorf("failed to decode JSON object: %w", err)
		}
		records = []Record{record}
	}

	total := len(records)
	kept := make([]Record, 0, total)
	for _, record := range records {
		if p.config.SkipEmptyRows && len(record) == 0 {
			continue
		}
		kept = append(kept, record)
	}

	return &ParseResult{
		Records:     kept,
		TotalRows:   total,
		SkippedRows: total - len(kept),
		Columns:     collectColumns(kept),
		Format:      "JSON",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONParser) SupportedFormats() []string {
	return []string{".json"}
}

// collectColumns returns the union of keys, sorted
func collectColumns(records []Record) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return columns
}
