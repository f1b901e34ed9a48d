package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/kass/go-realestate/pkg/normalize"
)

// Workbook sheet names.
const (
	SummarySheet     = "Summary"
	RegionMeansSheet = "RegionMeans"
	CorrelationSheet = "Correlation"
)

// WriteWorkbook saves the computed statistics as an XLSX workbook. Only
// aggregates are written, never the listing rows.
func WriteWorkbook(path string, s *Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for _, name := range []string{RegionMeansSheet, CorrelationSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	w := sheetWriter{f: f, bold: bold}

	w.header(SummarySheet, 1, "column", "count", "mean", "std", "min", "25%", "50%", "75%", "max")
	row := 2
	for _, d := range s.Describe {
		w.row(SummarySheet, row, d.Column, d.Count, cell(d.Mean), cell(d.Std), cell(d.Min),
			cell(d.Q25), cell(d.Median), cell(d.Q75), cell(d.Max))
		row++
	}
	row++
	w.header(SummarySheet, row, "source", "read", "dropped_missing", "malformed", "kept")
	for _, src := range []struct {
		name  string
		stats normalize.Stats
	}{{"A", s.StatsA}, {"B", s.StatsB}} {
		row++
		w.row(SummarySheet, row, src.name, src.stats.Read, src.stats.DroppedMissing, src.stats.Malformed, src.stats.Kept)
	}
	row += 2
	w.row(SummarySheet, row, "run_id", s.RunID)
	w.row(SummarySheet, row+1, "generated_at", s.GeneratedAt.Format("2006-01-02T15:04:05Z"))

	w.header(RegionMeansSheet, 1, "region", "listings", "mean_price_usd")
	for i, m := range s.RegionMeans {
		w.row(RegionMeansSheet, i+2, m.Group, m.Count, cell(m.Mean))
	}

	w.header(CorrelationSheet, 1, "state", "listings", "r")
	for i, c := range s.Correlations {
		w.row(CorrelationSheet, i+2, c.Group, c.Count, cell(c.R))
	}

	if w.err != nil {
		return fmt.Errorf("failed to fill workbook: %w", w.err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so rows can be written without
// checking each call.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, row int, values ...interface{}) {
	if w.err != nil {
		return
	}
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, axis, &values)
}

func (w *sheetWriter) header(sheet string, row int, names ...string) {
	values := make([]interface{}, len(names))
	for i, n := range names {
		values[i] = n
	}
	w.row(sheet, row, values...)
	if w.err == nil {
		w.err = w.f.SetRowStyle(sheet, row, row, w.bold)
	}
}

// cell leaves undefined statistics blank.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
