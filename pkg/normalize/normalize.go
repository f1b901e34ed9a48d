// Package normalize turns the two raw listing files into one canonical table.
//
// Source A encodes coordinates, location hierarchy and a USD price as
// strings that must be split and parsed; Source B carries discrete numeric
// fields and a BRL price that is converted with an injected exchange rate.
// Both are reduced to models.Listing records and concatenated by Unify.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kass/go-realestate/pkg/dataset"
	"github.com/kass/go-realestate/pkg/models"
)

// Source names used in errors, stats and log attributes.
const (
	SourceA = "source_a"
	SourceB = "source_b"
)

// DefaultExchangeRate is the BRL per USD rate applied to Source B prices.
const DefaultExchangeRate = 3.19

// Policy decides what happens to a row whose fields cannot be parsed.
type Policy string

const (
	// SkipMalformed drops the row, logs it and counts it in Stats.Malformed.
	SkipMalformed Policy = "skip"
	// AbortOnMalformed fails the whole batch on the first malformed row.
	AbortOnMalformed Policy = "abort"
)

// ParsePolicy maps a configuration value to a Policy. Empty means SkipMalformed.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SkipMalformed:
		return SkipMalformed, nil
	case AbortOnMalformed:
		return AbortOnMalformed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Options controls row-level failure handling.
type Options struct {
	OnMalformed Policy
	Logger      *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// handle applies the malformed-row policy. It returns nil when the row
// should be skipped and the wrapped error when the batch must abort.
func (o Options) handle(source string, row int, err error) error {
	var mf *MalformedFieldError
	if !errors.As(err, &mf) {
		return err
	}
	mf.Source = source
	mf.Row = row
	if o.OnMalformed == AbortOnMalformed {
		return mf
	}
	o.logger().Warn("Dropping malformed row",
		slog.String("source", source),
		slog.Int("row", row),
		slog.String("column", mf.Column),
		slog.String("reason", mf.Reason))
	return nil
}

// Stats counts what happened to the rows of one source.
type Stats struct {
	Source         string `json:"source"`
	Read           int    `json:"read"`
	DroppedMissing int    `json:"dropped_missing"`
	Malformed      int    `json:"malformed"`
	Kept           int    `json:"kept"`
}

// Table is a normalized listing table together with its field set.
type Table struct {
	Columns []string
	Records []models.Listing
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.Records) }

// HasColumn reports whether column is part of the table's field set.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func requireColumns(source string, raw dataset.RawTable, columns ...string) error {
	for _, c := range columns {
		if !raw.HasColumn(c) {
			return fmt.Errorf("%w: %s has no %q column", ErrMissingColumn, source, c)
		}
	}
	return nil
}

// layout describes how raw columns map onto the output shape.
type layout struct {
	hasRegion   bool
	passthrough []string
}

func newLayout(raw dataset.RawTable, consumed ...string) layout {
	skip := make(map[string]bool, len(consumed)+1)
	for _, c := range consumed {
		skip[c] = true
	}
	skip[models.ColRegion] = true

	l := layout{hasRegion: raw.HasColumn(models.ColRegion)}
	for _, c := range raw.Columns {
		if !skip[c] {
			l.passthrough = append(l.passthrough, c)
		}
	}
	return l
}

func (l layout) columns() []string {
	cols := append([]string(nil), models.CanonicalColumns...)
	if l.hasRegion {
		cols = append(cols, models.ColRegion)
	}
	return append(cols, l.passthrough...)
}

// fill copies region and passthrough values from row into listing.
func (l layout) fill(listing *models.Listing, row dataset.RawRow) {
	if l.hasRegion {
		listing.Region = row[models.ColRegion]
	}
	if len(l.passthrough) == 0 {
		return
	}
	listing.Extra = make(map[string]string, len(l.passthrough))
	for _, c := range l.passthrough {
		listing.Extra[c] = row[c]
	}
}

// parseNumber parses a finite float for column.
func parseNumber(column, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, malformed(column, value, "not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed(column, value, "not a finite number")
	}
	return v, nil
}

// NameKey returns the form place names are compared in: trimmed and NFC
// normalized, so the same accented name from both files matches. Records keep
// the names as read.
func NameKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
