package parsers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// ExcelParser parses the first sheet of .xlsx workbooks
type ExcelParser struct {
	config *ParserConfig
}

// NewExcelParser creates a new Excel parser
func NewExcelParser(config *ParserConfig) *ExcelParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &ExcelParser{
		config: config,
	}
}

// Parse reads and parses an Excel file from disk
func (p *ExcelParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	if p.config.MaxFileSize > 0 {
		stat, err := os.Stat(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > p.config.MaxFileSize {
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), p.config.MaxFileSize)
		}
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return p.parseWorkbook(ctx, f)
}

// ParseStream reads and parses Excel data
func (p *ExcelParser) ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel stream: %w", err)
	}
	defer f.Close()

	return p.parseWorkbook(ctx, f)
}

// parseWorkbook streams the rows of the first sheet; row one is the header
func (p *ExcelParser) parseWorkbook(ctx context.Context, f *excelize.File) (*ParseResult, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	defer rows.Close()

	result := &ParseResult{
		Records: []Record{},
		Columns: []string{},
		Format:  "XLSX",
	}

	var header []string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		if header == nil {
			header = trimHeader(row, p.config.TrimWhitespace)
			result.Columns = header
			continue
		}

		result.TotalRows++

		if p.config.SkipEmptyRows && isEmptyRow(row) {
			result.SkippedRows++
			continue
		}

		result.Records = append(result.Records, rowToRecord(header, row, p.config.TrimWhitespace))
	}

	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *ExcelParser) SupportedFormats() []string {
	return []string{".xlsx"}
}
