package normalize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn is returned when a raw file lacks a column the normalizer needs.
	ErrMissingColumn = errors.New("required column missing")
	// ErrInvalidExchangeRate is returned for a non-positive or non-finite exchange rate.
	ErrInvalidExchangeRate = errors.New("exchange rate must be a positive finite number")
	// ErrEmptyTable is returned when no row survives normalization of either source.
	ErrEmptyTable = errors.New("unified table is empty")
	// ErrInvalidPolicy is returned for an unknown malformed-row policy name.
	ErrInvalidPolicy = errors.New("unknown malformed row policy")
)

// MalformedFieldError reports a composite or numeric field that could not be
// parsed into its expected components.
type MalformedFieldError struct {
	Source string
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("malformed %s %q: %s", e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s row %d: malformed %s %q: %s", e.Source, e.Row, e.Column, e.Value, e.Reason)
}

// SchemaMismatchError is returned by Unify when the two tables do not share
// the same field set.
type SchemaMismatchError struct {
	OnlyInA []string
	OnlyInB []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.OnlyInA) > 0 {
		parts = append(parts, "only in A: "+strings.Join(e.OnlyInA, ", "))
	}
	if len(e.OnlyInB) > 0 {
		parts = append(parts, "only in B: "+strings.Join(e.OnlyInB, ", "))
	}
	return "schema mismatch (" + strings.Join(parts, "; ") + ")"
}

func malformed(column, value, reason string) *MalformedFieldError {
	return &MalformedFieldError{Column: column, Value: value, Reason: reason}
}
