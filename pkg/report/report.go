// Package report renders the analysis of a unified listing table: PNG
// charts, a Markdown report, an XLSX statistics workbook and a console
// summary.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kass/go-realestate/pkg/analysis"
	"github.com/kass/go-realestate/pkg/geo"
	"github.com/kass/go-realestate/pkg/logging"
	"github.com/kass/go-realestate/pkg/models"
	"github.com/kass/go-realestate/pkg/normalize"
)

// Artifact file names written into Options.OutDir.
const (
	MapFile            = "map.png"
	HistogramFile      = "price_histogram.png"
	BoxPlotFile        = "area_boxplot.png"
	RegionMeansFile    = "region_mean_price.png"
	StateScatterFile   = "state_scatter.png"
	MarkdownFile       = "report.md"
	WorkbookFile       = "summary.xlsx"
	defaultBins        = 30
	defaultFocusState  = "Rio Grande do Sul"
	defaultFocusRegion = "South"
)

// Options controls what is rendered and where.
type Options struct {
	OutDir        string
	HistogramBins int
	FocusState    string
	FocusRegion   string
	MapCenter     models.Location
	Logger        *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Chart is one rendered image.
type Chart struct {
	Title string
	File  string
}

// Summary is everything the report shows, computed once and shared by the
// Markdown, workbook and console renderers.
type Summary struct {
	RunID       string
	GeneratedAt time.Time

	Columns []string
	Rows    int
	StatsA  normalize.Stats
	StatsB  normalize.Stats
	Bounds  models.BoundingBox

	Describe     []analysis.Summary
	AreaBox      analysis.BoxStats
	RegionMeans  []analysis.GroupMean
	FocusState   string
	FocusRegion  string
	StateRows    int
	StateR       float64
	Correlations []analysis.Correlation

	Charts []Chart
}

// Column returns the describe row for column, if present.
func (s *Summary) Column(column string) (analysis.Summary, bool) {
	for _, d := range s.Describe {
		if d.Column == column {
			return d, true
		}
	}
	return analysis.Summary{}, false
}

// Analyze computes the report statistics without writing anything.
func Analyze(res normalize.Result, opts Options) (*Summary, error) {
	t := res.Table
	if t.Len() == 0 {
		return nil, normalize.ErrEmptyTable
	}

	s := &Summary{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Columns:     t.Columns,
		Rows:        t.Len(),
		StatsA:      res.StatsA,
		StatsB:      res.StatsB,
		FocusState:  opts.FocusState,
		FocusRegion: opts.FocusRegion,
	}

	df := analysis.Frame(t)

	var err error
	if s.Describe, err = analysis.Describe(df, models.ColAreaM2, models.ColPriceUSD); err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}

	areas := make([]float64, t.Len())
	for i, l := range t.Records {
		areas[i] = l.AreaM2
	}
	s.AreaBox = analysis.Box(areas)

	state := analysis.FilterEq(df, models.ColState, opts.FocusState)
	s.StateRows = state.Nrow()
	s.StateR = analysis.Pearson(state.Col(models.ColAreaM2).Float(), state.Col(models.ColPriceUSD).Float())

	if t.HasColumn(models.ColRegion) {
		if s.RegionMeans, err = analysis.MeanBy(df, models.ColRegion, models.ColPriceUSD); err != nil {
			return nil, fmt.Errorf("failed to average by region: %w", err)
		}
		region := analysis.FilterEq(df, models.ColRegion, opts.FocusRegion)
		if region.Nrow() > 0 {
			if s.Correlations, err = analysis.CorrelationBy(region, models.ColState, models.ColAreaM2, models.ColPriceUSD); err != nil {
				return nil, fmt.Errorf("failed to correlate %s states: %w", opts.FocusRegion, err)
			}
		}
	}

	return s, nil
}

// Render analyzes the table and writes every artifact into opts.OutDir.
// Charts with nothing to plot are skipped and logged; any other failure
// aborts the run.
func Render(ctx context.Context, res normalize.Result, opts Options) (*Summary, error) {
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = defaultBins
	}
	if opts.FocusState == "" {
		opts.FocusState = defaultFocusState
	}
	if opts.FocusRegion == "" {
		opts.FocusRegion = defaultFocusRegion
	}
	log := opts.logger().With(slog.String("component", "report"))

	s, err := Analyze(res, opts)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRunID(ctx, s.RunID)

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	index := geo.NewListingIndex()
	index.Index(res.Table.Records)
	if s.Bounds, err = index.Bounds(); err != nil {
		return nil, err
	}

	for _, c := range s.charts(res.Table, opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.write(ctx, opts.OutDir, log); err != nil {
			return nil, err
		}
		if c.written {
			s.Charts = append(s.Charts, Chart{Title: c.title, File: c.file})
		}
	}

	if err := WriteMarkdown(filepath.Join(opts.OutDir, MarkdownFile), s); err != nil {
		return nil, err
	}
	if err := WriteWorkbook(filepath.Join(opts.OutDir, WorkbookFile), s); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Report written",
		slog.String("path", opts.OutDir),
		slog.Int("rows", s.Rows),
		slog.Int("charts", len(s.Charts)))

	return s, nil
}

// pendingChart defers building a chart until it is written, so one
// missing input only skips its own image.
type pendingChart struct {
	title   string
	file    string
	build   func() (renderer, error)
	written bool
}

func (c *pendingChart) write(ctx context.Context, dir string, log *slog.Logger) error {
	r, err := c.build()
	if errors.Is(err, ErrNoData) {
		log.WarnContext(ctx, "Skipping chart with no data", slog.String("chart", c.file))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", c.file, err)
	}
	if err := savePNG(r, filepath.Join(dir, c.file)); err != nil {
		return err
	}
	c.written = true
	log.DebugContext(ctx, "Rendered chart", slog.String("chart", c.file))
	return nil
}

func (s *Summary) charts(t normalize.Table, opts Options) []*pendingChart {
	prices := make([]float64, t.Len())
	focus := normalize.NameKey(opts.FocusState)
	var stateAreas, statePrices []float64
	for i, l := range t.Records {
		prices[i] = l.PriceUSD
		if normalize.NameKey(l.State) == focus {
			stateAreas = append(stateAreas, l.AreaM2)
			statePrices = append(statePrices, l.PriceUSD)
		}
	}

	return []*pendingChart{
		{title: "Real Estate Map", file: MapFile, build: func() (renderer, error) {
			return MapChart(t.Records, opts.MapCenter, s.Bounds)
		}},
		{title: "Distribution of Home Prices", file: HistogramFile, build: func() (renderer, error) {
			bins, err := analysis.Histogram(prices, opts.HistogramBins)
			if err != nil {
				return nil, err
			}
			return HistogramChart("Distribution of Home Prices", "Price [USD]", bins)
		}},
		{title: "Distribution of Home Sizes", file: BoxPlotFile, build: func() (renderer, error) {
			return BoxChart("Distribution of Home Sizes", "Area [sq meters]", s.AreaBox)
		}},
		{title: "Mean Home Price by Region", file: RegionMeansFile, build: func() (renderer, error) {
			return RegionBarChart("Mean Home Price by Region", s.RegionMeans)
		}},
		{title: opts.FocusState + ": Price vs. Area", file: StateScatterFile, build: func() (renderer, error) {
			return ScatterChart(opts.FocusState+": Price vs. Area", "Area [sq meters]", "Price [USD]", stateAreas, statePrices)
		}},
	}
}
