// Package sniffer reads vendor CSV/TSV exports. It detects the delimiter,
// skips title and date preamble lines to find the real header row, and
// yields rows keyed by normalised header names.
package sniffer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/FACorreiaa/adspend-reports/internal/domain/import/normalizer"
)

// Delimiters considered when none is given, in tie-break order.
var candidateDelimiters = []rune{',', ';', '\t'}

const sniffLines = 50

// Row is one data line keyed by normalised header.
type Row struct {
	header []string
	index  map[string]int
	values []string
}

// Get returns the trimmed value of field and whether the column exists.
func (r Row) Get(field string) (string, bool) {
	i, ok := r.index[field]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Headers returns the normalised header names in file order.
func (r Row) Headers() []string {
	return r.header
}

// Map copies the row into a field -> value map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.header))
	for i, h := range r.header {
		if _, dup := m[h]; dup || i >= len(r.values) {
			continue
		}
		m[h] = r.values[i]
	}
	return m
}

// NewRow builds a Row from already-normalised headers. Used by callers that
// assemble rows by hand, mostly tests.
func NewRow(header []string, values []string) Row {
	return Row{header: header, index: indexHeader(header), values: values}
}

// Reader yields rows lazily. It is finite and cannot be restarted.
type Reader struct {
	header    []string
	index     map[string]int
	delimiter rune
	skipLines int
	next      func() ([]string, error)
}

// NewReader prepares a reader over a delimited export. A zero delimiter
// means sniff it. Invalid UTF-8 is replaced, never rejected. When no header
// row can be found the reader is simply empty.
func NewReader(r io.Reader, delimiter rune) (*Reader, error) {
	decoded, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.ReplaceAll(string(decoded), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")

	if delimiter == 0 {
		delimiter = SniffDelimiter(lines)
	}

	rdr := &Reader{delimiter: delimiter, next: emptyNext}

	headerIdx := findHeaderRow(lines, delimiter)
	if headerIdx < 0 {
		return rdr, nil
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx:], "\n")))
	cr.Comma = delimiter
	cr.LazyQuotes = true
	// FieldsPerRecord 0: every row must match the header width.

	rawHeader, err := cr.Read()
	if err != nil {
		return rdr, nil
	}

	rdr.setHeader(rawHeader)
	rdr.skipLines = headerIdx
	rdr.next = func() ([]string, error) {
		for {
			record, err := cr.Read()
			if err == io.EOF {
				return nil, io.EOF
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// wrong column count or broken quoting
				continue
			}
			if err != nil {
				return nil, err
			}
			return record, nil
		}
	}

	return rdr, nil
}

// Header returns the normalised header names, nil when none was found.
func (r *Reader) Header() []string {
	return r.header
}

// Delimiter returns the delimiter in use (sniffed or given).
func (r *Reader) Delimiter() rune {
	return r.delimiter
}

// SkipLines returns how many preamble lines preceded the header.
func (r *Reader) SkipLines() int {
	return r.skipLines
}

// Next returns the next row, or io.EOF when the input is exhausted.
func (r *Reader) Next() (Row, error) {
	record, err := r.next()
	if err != nil {
		return Row{}, err
	}
	values := make([]string, len(record))
	for i, v := range record {
		values[i] = strings.TrimSpace(v)
	}
	return Row{header: r.header, index: r.index, values: values}, nil
}

func (r *Reader) setHeader(raw []string) {
	r.header = make([]string, len(raw))
	for i, h := range raw {
		r.header[i] = normalizer.NormalizeHeader(h)
	}
	r.index = indexHeader(r.header)
}

// SniffDelimiter picks the candidate that splits the most of the first lines
// into the same number of fields. Falls back to a comma.
func SniffDelimiter(lines []string) rune {
	sample := make([]string, 0, sniffLines)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) == sniffLines {
			break
		}
	}

	best := ','
	bestScore, bestMode := 0, 0
	for _, d := range candidateDelimiters {
		freq := make(map[int]int)
		for _, line := range sample {
			if n := strings.Count(line, string(d)); n > 0 {
				freq[n]++
			}
		}

		score, mode := 0, 0
		for n, c := range freq {
			if c > score || (c == score && n > mode) {
				score, mode = c, n
			}
		}

		if score > bestScore || (score == bestScore && score > 0 && mode > bestMode) {
			best, bestScore, bestMode = d, score, mode
		}
	}

	return best
}

// findHeaderRow returns the index of the first line that contains the
// delimiter and splits into at least two fields, or -1.
func findHeaderRow(lines []string, delimiter rune) int {
	for i, line := range lines {
		if !strings.ContainsRune(line, delimiter) {
			continue
		}
		cr := csv.NewReader(strings.NewReader(line))
		cr.Comma = delimiter
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
		fields, err := cr.Read()
		if err != nil {
			continue
		}
		if len(fields) >= 2 {
			return i
		}
	}
	return -1
}

func indexHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}

func emptyNext() ([]string, error) {
	return nil, io.EOF
}

// IsXLSX reports whether data looks like an Office Open XML workbook.
func IsXLSX(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
