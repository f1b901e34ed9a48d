package normalize

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sourceBColumns = []string{"property_type", "state", "region", "lat", "lon", "area_m2", "price_brl"}

func TestNormalizeSourceBExample(t *testing.T) {
	raw := rawTable(sourceBColumns,
		[]string{"house", "Rio Grande do Sul", "South", "-30.03", "-51.22", "40", "319.0"},
	)

	table, stats, err := NormalizeSourceB(raw, DefaultExchangeRate, quietOptions(SkipMalformed))
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	l := table.Records[0]
	assert.InDelta(t, 100.0, l.PriceUSD, 1e-9)
	assert.Equal(t, 40.0, l.AreaM2)
	assert.Equal(t, "South", l.Region)
	assert.Equal(t, "Rio Grande do Sul", l.State)
	assert.Equal(t, map[string]string{"property_type": "house"}, l.Extra)
	assert.Equal(t, 1, stats.Kept)

	assert.False(t, table.HasColumn(ColPriceBRL))
	assert.Equal(t, []string{"lat", "lon", "state", "area_m2", "price_usd", "region", "property_type"}, table.Columns)
}

func TestNormalizeSourceBConvertsWithInjectedRate(t *testing.T) {
	prices := []string{"319.0", "1000", "250000.75", "0"}
	rows := make([][]string, len(prices))
	for i, p := range prices {
		rows[i] = []string{"apartment", "Bahia", "Northeast", "-12.9", "-38.5", "70", p}
	}
	raw := rawTable(sourceBColumns, rows...)

	for _, rate := range []float64{3.19, 5.0, 0.5} {
		table, _, err := NormalizeSourceB(raw, rate, quietOptions(SkipMalformed))
		require.NoError(t, err)
		require.Len(t, table.Records, len(prices))

		for i, want := range []float64{319.0, 1000, 250000.75, 0} {
			assert.InDelta(t, want/rate, table.Records[i].PriceUSD, 1e-9)
		}
	}
}

func TestNormalizeSourceBDropsRowsWithMissingValues(t *testing.T) {
	raw := rawTable(sourceBColumns,
		[]string{"house", "Paraná", "South", "-25.4", "-49.2", "120", ""},
		[]string{"house", "Paraná", "South", "-25.4", "-49.2", "120", "500000"},
		[]string{"house", "Paraná", "", "-25.4", "-49.2", "120", "500000"},
		[]string{"house", "Paraná", "South", "NA", "-49.2", "120", "500000"},
	)

	table, stats, err := NormalizeSourceB(raw, DefaultExchangeRate, quietOptions(SkipMalformed))
	require.NoError(t, err)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 3, stats.DroppedMissing)
	assert.Equal(t, 4, stats.Read)
}

func TestNormalizeSourceBInvalidExchangeRate(t *testing.T) {
	raw := rawTable(sourceBColumns)

	for _, rate := range []float64{0, -3.19, math.NaN(), math.Inf(1)} {
		_, _, err := NormalizeSourceB(raw, rate, quietOptions(SkipMalformed))
		assert.ErrorIs(t, err, ErrInvalidExchangeRate, "rate %v", rate)
	}
}

func TestNormalizeSourceBMalformedPolicy(t *testing.T) {
	raw := rawTable(sourceBColumns,
		[]string{"house", "Goiás", "Central-West", "-16.6", "west", "90", "300000"},
		[]string{"house", "Goiás", "Central-West", "-16.6", "-49.2", "90", "300000"},
	)

	table, stats, err := NormalizeSourceB(raw, DefaultExchangeRate, quietOptions(SkipMalformed))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, stats.Malformed)

	_, _, err = NormalizeSourceB(raw, DefaultExchangeRate, quietOptions(AbortOnMalformed))
	var mf *MalformedFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, SourceB, mf.Source)
	assert.Equal(t, 1, mf.Row)
	assert.Equal(t, "lon", mf.Column)
}

func TestNormalizeSourceBMissingColumn(t *testing.T) {
	raw := rawTable([]string{"state", "lat", "lon", "area_m2"})

	_, _, err := NormalizeSourceB(raw, DefaultExchangeRate, quietOptions(SkipMalformed))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, SkipMalformed, p)

	p, err = ParsePolicy(" Abort ")
	require.NoError(t, err)
	assert.Equal(t, AbortOnMalformed, p)

	_, err = ParsePolicy("ignore")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("Paran\u00e1"), NameKey(" Parana\u0301 "))
	assert.Equal(t, "S\u00e3o Paulo", NameKey("Sa\u0303o Paulo"))
	assert.NotEqual(t, NameKey("Parana"), NameKey("Paran\u00e1"))
}
