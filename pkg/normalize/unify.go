package normalize

import (
	"github.com/kass/go-realestate/pkg/models"
)

// Unify concatenates a and b row-wise: all of a in order, then all of b in
// order. The tables must share the same field set.
func Unify(a, b Table) (Table, error) {
	onlyA := missingFrom(a.Columns, b.Columns)
	onlyB := missingFrom(b.Columns, a.Columns)
	if len(onlyA) > 0 || len(onlyB) > 0 {
		return Table{}, &SchemaMismatchError{OnlyInA: onlyA, OnlyInB: onlyB}
	}

	records := make([]models.Listing, 0, a.Len()+b.Len())
	records = append(records, a.Records...)
	records = append(records, b.Records...)

	return Table{
		Columns: append([]string(nil), a.Columns...),
		Records: records,
	}, nil
}

// missingFrom returns the columns of from that are absent in other.
func missingFrom(from, other []string) []string {
	set := make(map[string]struct{}, len(other))
	for _, c := range other {
		set[c] = struct{}{}
	}
	var out []string
	for _, c := range from {
		if _, ok := set[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
