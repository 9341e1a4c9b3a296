package parsers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// JSONLParser parses JSONL/NDJSON files (one object per line)
type JSONLParser struct {
	config *ParserConfig
}

// NewJSONLParser creates a new JSONL parser
func NewJSONLParser(config *ParserConfig) *JSONLParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONLParser{
		config: config,
	}
}

// Parse reads and parses a JSONL file from disk
func (p *JSONLParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openChecked(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses JSONL data. Blank and malformed lines are
// counted as skipped.
func (p *JSONLParser) ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error) {
	r, err := skipBOM(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), lineLimit(p.config))

	records := make([]Record, 0)
	totalRows := 0
	skippedRows := 0

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		totalRows++

		if len(line) == 0 {
			skippedRows++
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			skippedRows++
			continue
		}

		if p.config.SkipEmptyRows && len(record) == 0 {
			skippedRows++
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL stream: %w", err)
	}

	return &ParseResult{
		Records:     records,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     collectColumns(records),
		Format:      "JSONL",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONLParser) SupportedFormats() []string {
	return []string{".jsonl", ".ndjson"}
}

func lineLimit(config *ParserConfig) int {
	if config.MaxLineSize > 0 {
		return config.MaxLineSize
	}
	return 1024 * 1024
}
