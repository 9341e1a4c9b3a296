package parsers

import (
	"context"
	"io"
)

// Record represents a single data record as a map of column to value
type Record map[string]interface{}

// ParseResult contains the records of a file and parsing statistics
type ParseResult struct {
	Records     []Record
	TotalRows   int
	SkippedRows int
	Columns     []string
	Format      string
}

// FileParser is the interface all parsers must implement
type FileParser interface {
	// Parse reads and parses the file at filePath
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// ParseStream reads and parses from r
	ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser handles
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyRows drops rows whose cells are all blank
	SkipEmptyRows bool

	// TrimWhitespace trims header names and cell values
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64

	// MaxLineSize bounds a single JSONL or text line
	MaxLineSize int

	// TextColumn is the column plain text lines are stored under
	TextColumn string
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    500 * 1024 * 1024,
		MaxLineSize:    4 * 1024 * 1024,
		TextColumn:     "text",
	}
}
