package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadOptions controls CSV decoding.
type ReadOptions struct {
	// Charset is an IANA charset name for the upload. Empty means UTF-8.
	Charset string
}

// ReadCSV decodes a delimited text table whose first record is the header.
// Empty header cells become "Unnamed: i" and repeated names get ".1", ".2"
// suffixes, so every column name is unique. Short rows are padded with
// empty cells.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	decoded, err := decodeReader(r, opts.Charset)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	// A stray quote stays in its cell and fails numeric validation later.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}

	columns := normalizeHeader(header)
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}
		if len(record) > len(columns) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformedCSV, line, len(record), len(columns))
		}
		row := make([]string, len(columns))
		copy(row, record)
		rows = append(rows, row)
	}
	return NewTable(columns, rows)
}

// WriteCSV encodes t as UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if name := strings.TrimSpace(charset); name != "" {
		e, err := ianaindex.IANA.Encoding(name)
		if err != nil || e == nil {
			return nil, fmt.Errorf("%w: unsupported charset %q", ErrMalformedCSV, charset)
		}
		enc = e
	}
	// a byte order mark overrides the declared charset and is dropped
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := next[base]; ; n++ {
			if n > 0 {
				name = fmt.Sprintf("%s.%d", base, n)
			}
			if !used[name] {
				next[base] = n + 1
				break
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}
