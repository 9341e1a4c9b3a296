package parsers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// openChecked opens filePath after enforcing the size limit
func openChecked(filePath string, maxSize int64) (*os.File, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if maxSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > maxSize {
			file.Close()
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), maxSize)
		}
	}

	return file, nil
}

// skipBOM drops a leading UTF-8 byte order mark, which spreadsheet exports
// of Arabic text often carry
func skipBOM(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	head = head[:n]
	if bytes.Equal(head, utf8BOM) {
		return r, nil
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}

// isEmptyRow checks if a row contains only blank cells
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowToRecord pairs header names with row cells; missing cells become ""
func rowToRecord(header, row []string, trim bool) Record {
	record := make(Record, len(header))
	for i, col := range header {
		value := ""
		if i < len(row) {
			value = row[i]
			if trim {
				value = strings.TrimSpace(value)
			}
		}
		record[col] = value
	}
	return record
}

func trimHeader(header []string, trim bool) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if trim {
			h = strings.TrimSpace(h)
		}
		out[i] = h
	}
	return out
}
