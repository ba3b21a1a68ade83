package sniffer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// NewXLSXReader reads the first sheet of a workbook with the same header
// rules as NewReader: title rows are skipped until a row with at least two
// filled cells shows up.
func NewXLSXReader(r io.Reader) (*Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	rdr := &Reader{next: emptyNext}
	if len(sheets) == 0 {
		return rdr, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	headerIdx := -1
	for i, row := range rows {
		if filledCells(row) >= 2 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return rdr, nil
	}

	rdr.setHeader(rows[headerIdx])
	rdr.skipLines = headerIdx
	width := len(rdr.header)
	pos := headerIdx + 1

	rdr.next = func() ([]string, error) {
		for pos < len(rows) {
			row := rows[pos]
			pos++
			if filledCells(row) == 0 {
				continue
			}
			// GetRows drops trailing empty cells.
			if len(row) > width {
				if filledCells(row[width:]) > 0 {
					continue
				}
				row = row[:width]
			}
			padded := make([]string, width)
			copy(padded, row)
			return padded, nil
		}
		return nil, io.EOF
	}

	return rdr, nil
}

func filledCells(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
