// Package dataset reads the raw listing files into untyped rows keyed by
// header column name. It does no cleaning beyond trimming cells; deciding
// what a missing or malformed value means is left to the normalizer.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// naTokens are the cell values treated as missing, in addition to the empty string.
var naTokens = map[string]struct{}{
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
	"#NA":  {},
}

// RawRow is one record of a raw file, keyed by header column name.
type RawRow map[string]string

// RawTable is a raw file loaded into memory.
type RawTable struct {
	Columns []string
	Rows    []RawRow
}

// IsMissing reports whether a cell value counts as missing.
func IsMissing(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	_, ok := naTokens[v]
	return ok
}

// Value returns the cell for column and whether it holds a non-missing value.
func (r RawRow) Value(column string) (string, bool) {
	v, ok := r[column]
	if !ok || IsMissing(v) {
		return "", false
	}
	return v, true
}

// Complete reports whether none of the given columns is missing.
func (r RawRow) Complete(columns []string) bool {
	for _, c := range columns {
		if _, ok := r.Value(c); !ok {
			return false
		}
	}
	return true
}

// HasColumn reports whether the table header contains column.
func (t RawTable) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Load opens path and reads it as a comma separated file with a header row.
func Load(path string) (RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawTable{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return RawTable{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// Read parses comma separated data with a header row. Records shorter than
// the header leave their trailing columns missing; longer records are an error.
func Read(r io.Reader) (RawTable, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return RawTable{}, fmt.Errorf("failed to read content: %w", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{}, errors.New("file is empty")
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return RawTable{}, fmt.Errorf("header column %d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return RawTable{}, fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = struct{}{}
		columns[i] = name
	}

	table := RawTable{Columns: columns}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return RawTable{}, fmt.Errorf("failed to read record %d: %w", line, err)
		}
		if len(record) > len(columns) {
			return RawTable{}, fmt.Errorf("record %d has %d fields, header has %d", line, len(record), len(columns))
		}
		row := make(RawRow, len(columns))
		for j, c := range columns {
			if j < len(record) {
				row[c] = strings.TrimSpace(record[j])
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
