// Package analysis computes the descriptive statistics shown in the report
// from a read-only DataFrame view of the unified listing table.
package analysis

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/kass/go-realestate/pkg/models"
	"github.com/kass/go-realestate/pkg/normalize"
)

// Frame copies the unified table into a DataFrame with one column per table
// field, in table column order. Coordinates, area and price are float columns;
// everything else is a string column.
func Frame(t normalize.Table) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(t.Columns))
	for _, name := range t.Columns {
		switch name {
		case models.ColLat, models.ColLon, models.ColAreaM2, models.ColPriceUSD:
			vals := make([]float64, t.Len())
			for i, r := range t.Records {
				vals[i] = floatField(r, name)
			}
			cols = append(cols, series.New(vals, series.Float, name))
		default:
			vals := make([]string, t.Len())
			for i, r := range t.Records {
				vals[i] = stringField(r, name)
			}
			cols = append(cols, series.New(vals, series.String, name))
		}
	}
	return dataframe.New(cols...)
}

func floatField(l models.Listing, name string) float64 {
	switch name {
	case models.ColLat:
		return l.Lat
	case models.ColLon:
		return l.Lon
	case models.ColAreaM2:
		return l.AreaM2
	default:
		return l.PriceUSD
	}
}

func stringField(l models.Listing, name string) string {
	switch name {
	case models.ColState:
		return l.State
	case models.ColRegion:
		return l.Region
	default:
		return l.Extra[name]
	}
}

// FilterEq keeps the rows whose column equals value. Names are compared by
// normalize.NameKey, so spacing and Unicode composition do not matter.
func FilterEq(df dataframe.DataFrame, column, value string) dataframe.DataFrame {
	key := normalize.NameKey(value)
	return df.Filter(dataframe.F{
		Colname:    column,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return normalize.NameKey(el.String()) == key
		},
	})
}

// floatCol returns the values of a float column.
func floatCol(df dataframe.DataFrame, column string) ([]float64, error) {
	s := df.Col(column)
	if s.Err != nil {
		return nil, fmt.Errorf("column %q: %w", column, s.Err)
	}
	return s.Float(), nil
}

// groups returns the distinct name keys of a column, sorted.
func groups(df dataframe.DataFrame, column string) ([]string, error) {
	s := df.Col(column)
	if s.Err != nil {
		return nil, fmt.Errorf("column %q: %w", column, s.Err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, v := range s.Records() {
		k := normalize.NameKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
