package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoBins is returned by Histogram for a non-positive bin count.
var ErrNoBins = errors.New("histogram needs at least one bin")

// Summary is the describe() row for one numeric column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarizes each named float column. Std is the sample standard
// deviation and quartiles interpolate linearly between order statistics.
// Statistics of an empty column are NaN.
func Describe(df dataframe.DataFrame, columns ...string) ([]Summary, error) {
	out := make([]Summary, 0, len(columns))
	for _, c := range columns {
		s := df.Col(c)
		if s.Err != nil {
			return nil, fmt.Errorf("column %q: %w", c, s.Err)
		}
		sum := Summary{Column: c, Count: s.Len()}
		if sum.Count == 0 {
			nan := math.NaN()
			sum.Mean, sum.Std, sum.Min, sum.Q25, sum.Median, sum.Q75, sum.Max = nan, nan, nan, nan, nan, nan, nan
			out = append(out, sum)
			continue
		}
		vals := s.Float()
		sort.Float64s(vals)
		sum.Mean = s.Mean()
		sum.Std = math.NaN()
		if sum.Count > 1 {
			sum.Std = s.StdDev()
		}
		sum.Min = floats.Min(vals)
		sum.Max = floats.Max(vals)
		sum.Q25 = quantile(vals, 0.25)
		sum.Median = quantile(vals, 0.5)
		sum.Q75 = quantile(vals, 0.75)
		out = append(out, sum)
	}
	return out, nil
}

// GroupMean is the mean of a value column within one group.
type GroupMean struct {
	Group string
	Count int
	Mean  float64
}

// MeanBy averages value per distinct group, sorted by group.
func MeanBy(df dataframe.DataFrame, group, value string) ([]GroupMean, error) {
	keys, err := groups(df, group)
	if err != nil {
		return nil, err
	}
	if _, err := floatCol(df, value); err != nil {
		return nil, err
	}

	out := make([]GroupMean, 0, len(keys))
	for _, k := range keys {
		vals, err := floatCol(FilterEq(df, group, k), value)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupMean{Group: k, Count: len(vals), Mean: stat.Mean(vals, nil)})
	}
	return out, nil
}

// Correlation is the Pearson coefficient of two columns within one group.
type Correlation struct {
	Group string
	Count int
	R     float64
}

// CorrelationBy computes the Pearson correlation of x and y per distinct
// group, sorted by group. R is NaN when a group has fewer than two rows or
// either column is constant within it.
func CorrelationBy(df dataframe.DataFrame, group, x, y string) ([]Correlation, error) {
	keys, err := groups(df, group)
	if err != nil {
		return nil, err
	}

	out := make([]Correlation, 0, len(keys))
	for _, k := range keys {
		sub := FilterEq(df, group, k)
		xs, err := floatCol(sub, x)
		if err != nil {
			return nil, err
		}
		ys, err := floatCol(sub, y)
		if err != nil {
			return nil, err
		}
		out = append(out, Correlation{Group: k, Count: len(xs), R: Pearson(xs, ys)})
	}
	return out, nil
}

// Pearson returns the correlation coefficient of xs and ys, or NaN when it
// is undefined.
func Pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// Bin is one histogram bucket covering [Lo, Hi); the last bucket also holds Hi.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits values into equal-width bins between their min and max.
// All-equal values land in a single bin.
func Histogram(values []float64, bins int) ([]Bin, error) {
	if bins <= 0 {
		return nil, ErrNoBins
	}
	if len(values) == 0 {
		return nil, nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(values)}}, nil
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out, nil
}

// BoxStats holds the five-number summary plus outliers beyond 1.5 IQR.
type BoxStats struct {
	Count       int
	Q1          float64
	Median      float64
	Q3          float64
	WhiskerLow  float64
	WhiskerHigh float64
	Outliers    []float64
}

// Box computes box-plot statistics. Whiskers reach the most extreme values
// within 1.5 IQR of the quartiles.
func Box(values []float64) BoxStats {
	b := BoxStats{Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		b.Q1, b.Median, b.Q3, b.WhiskerLow, b.WhiskerHigh = nan, nan, nan, nan, nan
		return b
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	b.Q1 = quantile(sorted, 0.25)
	b.Median = quantile(sorted, 0.5)
	b.Q3 = quantile(sorted, 0.75)

	iqr := b.Q3 - b.Q1
	lowFence, highFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.WhiskerLow, b.WhiskerHigh = b.Q1, b.Q3
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		if v < b.WhiskerLow {
			b.WhiskerLow = v
		}
		if v > b.WhiskerHigh {
			b.WhiskerHigh = v
		}
	}
	return b
}

// quantile returns the p-quantile of sorted values, interpolating linearly
// between the order statistics at rank (n-1)p.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	i := int(math.Floor(h))
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}
