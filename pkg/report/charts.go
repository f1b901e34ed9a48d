package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kass/go-realestate/pkg/analysis"
	"github.com/kass/go-realestate/pkg/models"
)

// ErrNoData is returned by chart builders given nothing to plot.
var ErrNoData = errors.New("no data to plot")

var (
	blue   = drawing.ColorFromHex("1f77b4")
	orange = drawing.ColorFromHex("ff7f0e")
	green  = drawing.ColorFromHex("2ca02c")
	red    = drawing.ColorFromHex("d62728")
	black  = drawing.ColorBlack
)

// pointStyle renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1.5,
		StrokeColor: col,
	}
}

// padRange returns an axis range around [min, max] with a margin on both
// sides. A degenerate span is widened so the renderer never sees a zero range.
func padRange(min, max float64) *chart.ContinuousRange {
	if max < min {
		min, max = max, min
	}
	span := max - min
	if span == 0 {
		span = math.Max(math.Abs(min)*0.1, 1)
	}
	pad := span * 0.05
	return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 24, Bottom: 16}}
}

// scatterPoints duplicates a lone point; the series renderer needs two.
func scatterPoints(xs, ys []float64) ([]float64, []float64) {
	if len(xs) == 1 {
		return []float64{xs[0], xs[0]}, []float64{ys[0], ys[0]}
	}
	return xs, ys
}

// priceBucket is the listings of one price quartile on the map.
type priceBucket struct {
	name   string
	color  drawing.Color
	xs, ys []float64
}

// priceBuckets splits listings into price quartiles, cheapest first. Empty
// quartiles are dropped.
func priceBuckets(listings []models.Listing) []priceBucket {
	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.PriceUSD
	}
	box := analysis.Box(prices)
	edges := []float64{box.Q1, box.Median, box.Q3}

	buckets := []priceBucket{
		{name: "up to " + formatPrice(box.Q1), color: blue},
		{name: "up to " + formatPrice(box.Median), color: green},
		{name: "up to " + formatPrice(box.Q3), color: orange},
		{name: "above " + formatPrice(box.Q3), color: red},
	}
	for _, l := range listings {
		i := 0
		for i < len(edges) && l.PriceUSD > edges[i] {
			i++
		}
		buckets[i].xs = append(buckets[i].xs, l.Lon)
		buckets[i].ys = append(buckets[i].ys, l.Lat)
	}

	out := buckets[:0]
	for _, b := range buckets {
		if len(b.xs) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// MapChart plots listing coordinates as lon/lat points coloured by price
// quartile. The view is centered on center and wide enough to hold bounds.
func MapChart(listings []models.Listing, center models.Location, bounds models.BoundingBox) (chart.Chart, error) {
	if len(listings) == 0 {
		return chart.Chart{}, ErrNoData
	}

	buckets := priceBuckets(listings)
	series := make([]chart.Series, 0, len(buckets))
	for _, b := range buckets {
		xs, ys := scatterPoints(b.xs, b.ys)
		series = append(series, chart.ContinuousSeries{
			Name:    "Price " + b.name,
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(b.color),
		})
	}

	halfLat := math.Max(math.Abs(bounds.TopRight.Lat-center.Lat), math.Abs(bounds.BottomLeft.Lat-center.Lat))
	halfLon := math.Max(math.Abs(bounds.TopRight.Lon-center.Lon), math.Abs(bounds.BottomLeft.Lon-center.Lon))
	half := math.Max(math.Max(halfLat, halfLon), 1)

	c := chart.Chart{
		Title:      "Real Estate Map",
		Width:      600,
		Height:     600,
		Background: background(),
		XAxis:      chart.XAxis{Name: "Longitude", Range: padRange(center.Lon-half, center.Lon+half)},
		YAxis:      chart.YAxis{Name: "Latitude", Range: padRange(center.Lat-half, center.Lat+half)},
		Series:     series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return c, nil
}

// HistogramChart draws the bins as filled steps.
func HistogramChart(title, xName string, bins []analysis.Bin) (chart.Chart, error) {
	if len(bins) == 0 {
		return chart.Chart{}, ErrNoData
	}

	xs := make([]float64, 0, 4*len(bins))
	ys := make([]float64, 0, 4*len(bins))
	maxCount := 0
	for _, b := range bins {
		xs = append(xs, b.Lo, b.Lo, b.Hi, b.Hi)
		ys = append(ys, 0, float64(b.Count), float64(b.Count), 0)
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	style := chart.Style{
		StrokeWidth: 1,
		StrokeColor: black,
		FillColor:   blue,
	}

	return chart.Chart{
		Title:      title,
		Width:      1000,
		Height:     500,
		Background: background(),
		XAxis:      chart.XAxis{Name: xName, Range: padRange(bins[0].Lo, bins[len(bins)-1].Hi)},
		YAxis:      chart.YAxis{Name: "Frequency", Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(maxCount)*1.1, 1)}},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Frequency", XValues: xs, YValues: ys, Style: style},
		},
	}, nil
}

// BoxChart draws a horizontal box plot: a box from Q1 to Q3 split at the
// median, whiskers to the fences and outliers as points.
func BoxChart(title, xName string, b analysis.BoxStats) (chart.Chart, error) {
	if b.Count == 0 {
		return chart.Chart{}, ErrNoData
	}

	const (
		mid    = 1.0
		half   = 0.2
		capLen = 0.1
	)
	seg := func(x1, y1, x2, y2 float64, col drawing.Color) chart.ContinuousSeries {
		return chart.ContinuousSeries{XValues: []float64{x1, x2}, YValues: []float64{y1, y2}, Style: lineStyle(col)}
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			XValues: []float64{b.Q1, b.Q3, b.Q3, b.Q1, b.Q1},
			YValues: []float64{mid - half, mid - half, mid + half, mid + half, mid - half},
			Style:   lineStyle(black),
		},
		seg(b.Median, mid-half, b.Median, mid+half, orange),
		seg(b.WhiskerLow, mid, b.Q1, mid, black),
		seg(b.Q3, mid, b.WhiskerHigh, mid, black),
		seg(b.WhiskerLow, mid-capLen, b.WhiskerLow, mid+capLen, black),
		seg(b.WhiskerHigh, mid-capLen, b.WhiskerHigh, mid+capLen, black),
	}

	lo, hi := b.WhiskerLow, b.WhiskerHigh
	if len(b.Outliers) > 0 {
		ys := make([]float64, len(b.Outliers))
		for i := range ys {
			ys[i] = mid
		}
		xs, ys := scatterPoints(b.Outliers, ys)
		series = append(series, chart.ContinuousSeries{Name: "Outliers", XValues: xs, YValues: ys, Style: pointStyle(red)})
		lo = math.Min(lo, b.Outliers[0])
		hi = math.Max(hi, b.Outliers[len(b.Outliers)-1])
	}

	return chart.Chart{
		Title:      title,
		Width:      1000,
		Height:     500,
		Background: background(),
		XAxis:      chart.XAxis{Name: xName, Range: padRange(lo, hi)},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: mid - 0.5, Max: mid + 0.5},
			Ticks: []chart.Tick{{Value: mid - 0.5, Label: ""}, {Value: mid, Label: "1"}, {Value: mid + 0.5, Label: ""}},
		},
		Series: series,
	}, nil
}

// RegionBarChart plots one bar per group mean.
func RegionBarChart(title string, means []analysis.GroupMean) (chart.BarChart, error) {
	if len(means) == 0 {
		return chart.BarChart{}, ErrNoData
	}

	bars := make([]chart.Value, len(means))
	top := 0.0
	for i, m := range means {
		bars[i] = chart.Value{
			Label: m.Group,
			Value: m.Mean,
			Style: chart.Style{FillColor: orange, StrokeColor: orange},
		}
		top = math.Max(top, m.Mean)
	}
	if top <= 0 {
		top = 1
	}

	return chart.BarChart{
		Title:      title,
		Width:      1000,
		Height:     500,
		BarWidth:   60,
		Background: background(),
		YAxis: chart.YAxis{
			Name:  "Mean Price [USD]",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}, nil
}

// ScatterChart plots y against x as points.
func ScatterChart(title, xName, yName string, xs, ys []float64) (chart.Chart, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return chart.Chart{}, ErrNoData
	}

	xr := padRange(floats.Min(xs), floats.Max(xs))
	yr := padRange(floats.Min(ys), floats.Max(ys))
	xs, ys = scatterPoints(xs, ys)

	return chart.Chart{
		Title:      title,
		Width:      1000,
		Height:     500,
		Background: background(),
		XAxis:      chart.XAxis{Name: xName, Range: xr},
		YAxis:      chart.YAxis{Name: yName, Range: yr},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: title, XValues: xs, YValues: ys, Style: pointStyle(green)},
		},
	}, nil
}

// renderer is satisfied by chart.Chart and chart.BarChart.
type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// savePNG renders c into path.
func savePNG(c renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := c.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
