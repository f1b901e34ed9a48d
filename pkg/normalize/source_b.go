package normalize

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/kass/go-realestate/pkg/dataset"
	"github.com/kass/go-realestate/pkg/models"
)

// ColPriceBRL is the Source B price column, in Brazilian reais.
const ColPriceBRL = "price_brl"

// NormalizeSourceB converts Source B prices to USD with exchangeRate (BRL per
// USD), drops the BRL column and then drops rows with any missing cell.
func NormalizeSourceB(raw dataset.RawTable, exchangeRate float64, opts Options) (Table, Stats, error) {
	stats := Stats{Source: SourceB, Read: len(raw.Rows)}

	if !(exchangeRate > 0) || math.IsInf(exchangeRate, 0) {
		return Table{}, stats, fmt.Errorf("%w: %v", ErrInvalidExchangeRate, exchangeRate)
	}
	if err := requireColumns(SourceB, raw, ColPriceBRL, models.ColAreaM2, models.ColLat, models.ColLon, models.ColState); err != nil {
		return Table{}, stats, err
	}

	l := newLayout(raw, ColPriceBRL, models.ColPriceUSD, models.ColAreaM2, models.ColLat, models.ColLon, models.ColState)
	table := Table{Columns: l.columns()}

	// Every raw column except price_brl must be present; a missing
	// price_brl leaves price_usd missing, so it is checked as well.
	remaining := make([]string, 0, len(raw.Columns))
	for _, c := range raw.Columns {
		if c != ColPriceBRL && c != models.ColPriceUSD {
			remaining = append(remaining, c)
		}
	}

	for i, row := range raw.Rows {
		priceBRL, ok := row.Value(ColPriceBRL)
		if !ok || !row.Complete(remaining) {
			stats.DroppedMissing++
			continue
		}

		listing, err := parseSourceBRow(row, priceBRL, exchangeRate)
		if err != nil {
			if err := opts.handle(SourceB, i+1, err); err != nil {
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
		slog.String("source", SourceB),
		slog.Float64("exchange_rate", exchangeRate),
		slog.Int("read", stats.Read),
		slog.Int("dropped_missing", stats.DroppedMissing),
		slog.Int("malformed", stats.Malformed),
		slog.Int("kept", stats.Kept))

	return table, stats, nil
}

func parseSourceBRow(row dataset.RawRow, priceBRL string, exchangeRate float64) (models.Listing, error) {
	brl, err := parseNumber(ColPriceBRL, priceBRL)
	if err != nil {
		return models.Listing{}, err
	}
	lat, err := parseNumber(models.ColLat, row[models.ColLat])
	if err != nil {
		return models.Listing{}, err
	}
	lon, err := parseNumber(models.ColLon, row[models.ColLon])
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
		State:    row[models.ColState],
		AreaM2:   area,
		PriceUSD: brl / exchangeRate,
	}, nil
}
