package report

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kass/go-realestate/pkg/analysis"
	"github.com/kass/go-realestate/pkg/models"
	"github.com/kass/go-realestate/pkg/normalize"
)

func sampleResult(withRegion bool) normalize.Result {
	cols := append([]string(nil), models.CanonicalColumns...)
	if withRegion {
		cols = append(cols, models.ColRegion)
	}
	rec := func(state, region string, lat, lon, area, price float64) models.Listing {
		l := models.Listing{Lat: lat, Lon: lon, State: state, AreaM2: area, PriceUSD: price}
		if withRegion {
			l.Region = region
		}
		return l
	}
	return normalize.Result{
		Table: normalize.Table{Columns: cols, Records: []models.Listing{
			rec("Rio Grande do Sul", "South", -30.03, -51.22, 60, 90000),
			rec("Rio Grande do Sul", "South", -29.68, -53.80, 120, 150000),
			rec("Rio Grande do Sul", "South", -31.77, -52.34, 150, 260000),
			rec("Paraná", "South", -25.43, -49.27, 90, 120000),
			rec("Paraná", "South", -25.09, -50.16, 70, 80000),
			rec("Santa Catarina", "South", -27.59, -48.55, 110, 300000),
			rec("Pernambuco", "Northeast", -8.05, -34.88, 80, 95000),
			rec("Bahia", "Northeast", -12.97, -38.50, 900, 2500000),
		}},
		StatsA: normalize.Stats{Source: normalize.SourceA, Read: 5, DroppedMissing: 1, Kept: 4},
		StatsB: normalize.Stats{Source: normalize.SourceB, Read: 4, Kept: 4},
	}
}

func testOptions(t *testing.T) Options {
	return Options{
		OutDir:        filepath.Join(t.TempDir(), "reports"),
		HistogramBins: 10,
		FocusState:    "Rio Grande do Sul",
		FocusRegion:   "South",
		MapCenter:     models.Location{Lat: -14.2, Lon: -51.9},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestAnalyze(t *testing.T) {
	s, err := Analyze(sampleResult(true), testOptions(t))
	require.NoError(t, err)

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 8, s.Rows)

	price, ok := s.Column(models.ColPriceUSD)
	require.True(t, ok)
	assert.Equal(t, 8, price.Count)
	assert.Equal(t, 2500000.0, price.Max)

	require.Len(t, s.RegionMeans, 2)
	assert.Equal(t, "Northeast", s.RegionMeans[0].Group)
	assert.Equal(t, "South", s.RegionMeans[1].Group)

	require.Len(t, s.Correlations, 3)
	assert.Equal(t, "Paraná", s.Correlations[0].Group)
	assert.InDelta(t, 1.0, s.Correlations[0].R, 1e-9)
	assert.True(t, math.IsNaN(s.Correlations[2].R), "single listing in Santa Catarina")

	assert.Equal(t, 3, s.StateRows)
	assert.Greater(t, s.StateR, 0.9)
	assert.Equal(t, []float64{900}, s.AreaBox.Outliers)
}

func TestAnalyzeEmptyTable(t *testing.T) {
	_, err := Analyze(normalize.Result{Table: normalize.Table{Columns: models.CanonicalColumns}}, testOptions(t))
	assert.ErrorIs(t, err, normalize.ErrEmptyTable)
}

func TestRender(t *testing.T) {
	opts := testOptions(t)

	s, err := Render(context.Background(), sampleResult(true), opts)
	require.NoError(t, err)

	for _, name := range []string{MapFile, HistogramFile, BoxPlotFile, RegionMeansFile, StateScatterFile} {
		info, err := os.Stat(filepath.Join(opts.OutDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
	assert.Len(t, s.Charts, 5)

	md, err := os.ReadFile(filepath.Join(opts.OutDir, MarkdownFile))
	require.NoError(t, err)
	report := string(md)
	assert.Contains(t, report, "# Brazil Real Estate Analysis")
	assert.Contains(t, report, s.RunID)
	assert.Contains(t, report, "| price_usd | 8 |")
	assert.Contains(t, report, "## Mean Home Price by Region")
	assert.Contains(t, report, "| Northeast | 2 | $1,297,500.00 |")
	assert.Contains(t, report, "## Correlation: South Region States")
	assert.Contains(t, report, "| Santa Catarina | 1 | n/a |")
	assert.Contains(t, report, "![Distribution of Home Prices](price_histogram.png)")
	assert.Contains(t, report, "skewed to the right")

	f, err := excelize.OpenFile(filepath.Join(opts.OutDir, WorkbookFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, RegionMeansSheet, CorrelationSheet}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows[0])
	assert.Equal(t, models.ColAreaM2, rows[1][0])
	assert.Equal(t, models.ColPriceUSD, rows[2][0])

	corr, err := f.GetRows(CorrelationSheet)
	require.NoError(t, err)
	require.Len(t, corr, 4)
	assert.Equal(t, []string{"Santa Catarina", "1"}, corr[3])
}

func TestRenderSkipsChartsWithoutData(t *testing.T) {
	opts := testOptions(t)
	opts.FocusState = "Acre"

	s, err := Render(context.Background(), sampleResult(false), opts)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(opts.OutDir, StateScatterFile))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(opts.OutDir, RegionMeansFile))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Len(t, s.Charts, 3)

	md, err := os.ReadFile(filepath.Join(opts.OutDir, MarkdownFile))
	require.NoError(t, err)
	assert.NotContains(t, string(md), "Mean Home Price by Region")
	assert.Contains(t, string(md), "No listings were found for Acre.")
}

func TestRenderMatchesFocusStateAcrossEncodings(t *testing.T) {
	opts := testOptions(t)
	opts.FocusState = " Parana\u0301"

	s, err := Render(context.Background(), sampleResult(true), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, s.StateRows)
	assert.InDelta(t, 1.0, s.StateR, 1e-9)

	_, err = os.Stat(filepath.Join(opts.OutDir, StateScatterFile))
	assert.NoError(t, err)
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Render(ctx, sampleResult(true), testOptions(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChartBuildersRejectEmptyInput(t *testing.T) {
	_, err := MapChart(nil, models.Location{}, models.BoundingBox{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = HistogramChart("t", "x", nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = BoxChart("t", "x", analysis.Box(nil))
	assert.ErrorIs(t, err, ErrNoData)
	_, err = RegionBarChart("t", nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = ScatterChart("t", "x", "y", nil, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMapChartColoursByPriceQuartile(t *testing.T) {
	listings := sampleResult(false).Table.Records

	buckets := priceBuckets(listings)
	require.Len(t, buckets, 4)
	assert.Equal(t, "up to $93,750.00", buckets[0].name)
	assert.Equal(t, "above $270,000.00", buckets[3].name)
	for _, b := range buckets {
		assert.Len(t, b.xs, 2, b.name)
		assert.Len(t, b.ys, 2, b.name)
	}
	assert.Equal(t, []float64{-51.22, -50.16}, buckets[0].xs)

	c, err := MapChart(listings, models.Location{Lat: -14.2, Lon: -51.9}, models.BoundingBox{})
	require.NoError(t, err)
	require.Len(t, c.Series, 4)
	assert.Equal(t, "Price above $270,000.00", c.Series[3].GetName())

	one, err := MapChart(listings[:1], models.Location{}, models.BoundingBox{})
	require.NoError(t, err)
	require.Len(t, one.Series, 1)
	require.NoError(t, savePNG(one, filepath.Join(t.TempDir(), "map.png")))
}

func TestSinglePointCharts(t *testing.T) {
	dir := t.TempDir()

	c, err := ScatterChart("one", "x", "y", []float64{5}, []float64{5})
	require.NoError(t, err)
	require.NoError(t, savePNG(c, filepath.Join(dir, "one.png")))

	bins, err := analysis.Histogram([]float64{3, 3}, 30)
	require.NoError(t, err)
	h, err := HistogramChart("flat", "x", bins)
	require.NoError(t, err)
	require.NoError(t, savePNG(h, filepath.Join(dir, "flat.png")))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$1,234.50", formatPrice(1234.5))
	assert.Equal(t, "$100.00", formatPrice(100))
	assert.Equal(t, "n/a", formatPrice(math.NaN()))
	assert.Equal(t, "n/a", formatNum(math.NaN()))
	assert.Equal(t, "0.50", formatNum(0.5))

	assert.Equal(t, "strong positive", strength(0.9))
	assert.Equal(t, "moderate negative", strength(-0.5))
	assert.Equal(t, "negligible", strength(0.05))
}

func TestConsole(t *testing.T) {
	res := sampleResult(true)
	s, err := Analyze(res, testOptions(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, s, "reports"))
	out := buf.String()
	assert.Contains(t, out, "Brazil Real Estate Analysis")
	assert.Contains(t, out, "Northeast")
	assert.Contains(t, out, "Paraná")

	info := TableInfo(res.Table, res.StatsA, res.StatsB)
	assert.Contains(t, info, "source_a")
	assert.True(t, strings.Contains(info, "lat, lon, state"))
}
