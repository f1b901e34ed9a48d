package normalize

import (
	"log/slog"
	"strings"

	"github.com/kass/go-realestate/pkg/dataset"
	"github.com/kass/go-realestate/pkg/models"
)

// Source A raw column names.
const (
	ColLatLon      = "lat-lon"
	ColLatLonAlias = "lat_lon"
	ColPlace       = "place_with_parent_names"
)

// stateIndex is the position of the state name in the place hierarchy
// ("country|region|state|city" or "|country|state|city|"). The hierarchy must
// have at least stateIndex+1 segments.
const stateIndex = 2

// NormalizeSourceA cleans Source A: rows with any missing cell are dropped,
// then the composite lat-lon, place hierarchy and currency-formatted price
// fields are parsed into canonical columns and the composite columns removed.
func NormalizeSourceA(raw dataset.RawTable, opts Options) (Table, Stats, error) {
	stats := Stats{Source: SourceA, Read: len(raw.Rows)}

	latLonCol := ColLatLon
	if !raw.HasColumn(ColLatLon) && raw.HasColumn(ColLatLonAlias) {
		latLonCol = ColLatLonAlias
	}
	if err := requireColumns(SourceA, raw, latLonCol, ColPlace, models.ColPriceUSD, models.ColAreaM2); err != nil {
		return Table{}, stats, err
	}

	l := newLayout(raw, latLonCol, ColPlace, models.ColPriceUSD, models.ColAreaM2)
	table := Table{Columns: l.columns()}

	for i, row := range raw.Rows {
		if !row.Complete(raw.Columns) {
			stats.DroppedMissing++
			continue
		}

		listing, err := parseSourceARow(row, latLonCol)
		if err != nil {
			if err := opts.handle(SourceA, i+1, err); err != nil {
				return Table{}, stats, err
			}
			stats.Malformed++
			continue
		}
		l.fill(&listing, row)
		table.Records = append(table.Records, listing)
	}
	stats.Kept = table.Len()

	opts.logger().Info("Normalized source",
		slog.String("source", SourceA),
		slog.Int("read", stats.Read),
		slog.Int("dropped_missing", stats.DroppedMissing),
		slog.Int("malformed", stats.Malformed),
		slog.Int("kept", stats.Kept))

	return table, stats, nil
}

func parseSourceARow(row dataset.RawRow, latLonCol string) (models.Listing, error) {
	lat, lon, err := ParseLatLon(row[latLonCol])
	if err != nil {
		return models.Listing{}, err
	}
	state, err := ParseState(row[ColPlace])
	if err != nil {
		return models.Listing{}, err
	}
	price, err := ParseUSD(row[models.ColPriceUSD])
	if err != nil {
		return models.Listing{}, err
	}
	area, err := parseNumber(models.ColAreaM2, row[models.ColAreaM2])
	if err != nil {
		return models.Listing{}, err
	}

	return models.Listing{
		Lat:      lat,
		Lon:      lon,
		State:    state,
		AreaM2:   area,
		PriceUSD: price,
	}, nil
}

// ParseLatLon splits a "lat,lon" composite on its single comma.
func ParseLatLon(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, malformed(ColLatLon, s, "expected exactly one comma")
	}
	if lat, err = parseNumber(ColLatLon, parts[0]); err != nil {
		return 0, 0, malformed(ColLatLon, s, "latitude is not a finite number")
	}
	if lon, err = parseNumber(ColLatLon, parts[1]); err != nil {
		return 0, 0, malformed(ColLatLon, s, "longitude is not a finite number")
	}
	return lat, lon, nil
}

// ParseState returns the state segment (index 2) of a pipe-delimited place
// hierarchy, unchanged.
func ParseState(s string) (string, error) {
	parts := strings.Split(s, "|")
	if len(parts) <= stateIndex {
		return "", malformed(ColPlace, s, "hierarchy has fewer than 3 segments")
	}
	state := parts[stateIndex]
	if strings.TrimSpace(state) == "" {
		return "", malformed(ColPlace, s, "state segment is empty")
	}
	return state, nil
}

// ParseUSD parses a currency formatted amount such as "$1,234.50".
func ParseUSD(s string) (float64, error) {
	cleaned := strings.ReplaceAll(s, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := parseNumber(models.ColPriceUSD, cleaned)
	if err != nil {
		return 0, malformed(models.ColPriceUSD, s, "not a currency amount")
	}
	return v, nil
}
