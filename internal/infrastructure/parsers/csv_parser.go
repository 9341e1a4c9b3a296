package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// CSVParser parses CSV files whose first row is the header
type CSVParser struct {
	config *ParserConfig
}

// NewCSVParser creates a new CSV parser
func NewCSVParser(config *ParserConfig) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{
		config: config,
	}
}

// Parse reads and parses a CSV file from disk
func (p *CSVParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openChecked(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses CSV data. Malformed rows are counted as
// skipped and parsing continues.
func (p *CSVParser) ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error) {
	r, err := skipBOM(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return &ParseResult{Records: []Record{}, Columns: []string{}, Format: "CSV"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header = trimHeader(header, p.config.TrimWhitespace)

	records := make([]Record, 0)
	totalRows := 0
	skippedRows := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		totalRows++
		if err != nil {
			skippedRows++
			continue
		}

		if p.config.SkipEmptyRows && isEmptyRow(row) {
			skippedRows++
			continue
		}

		records = append(records, rowToRecord(header, row, p.config.TrimWhitespace))
	}

	return &ParseResult{
		Records:     records,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      "CSV",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return []string{".csv"}
}
