package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kass/go-realestate/pkg/models"
)

var funcs = template.FuncMap{
	"num":   formatNum,
	"join":  strings.Join,
	"price": formatPrice,
}

var markdown = template.Must(template.New("report").Funcs(funcs).Parse(`# Brazil Real Estate Analysis

Run ` + "`{{.RunID}}`" + `, generated {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}.

## Combined Dataset Info

| Source | Rows read | Dropped (missing) | Dropped (malformed) | Kept |
|---|---:|---:|---:|---:|
{{- with .StatsA}}
| A | {{.Read}} | {{.DroppedMissing}} | {{.Malformed}} | {{.Kept}} |
{{- end}}
{{- with .StatsB}}
| B | {{.Read}} | {{.DroppedMissing}} | {{.Malformed}} | {{.Kept}} |
{{- end}}

{{.Rows}} listings, columns: {{join .Columns ", "}}.

## Insights
{{range .Insights}}
- {{.}}
{{- end}}

## Summary Statistics

| | count | mean | std | min | 25% | 50% | 75% | max |
|---|---:|---:|---:|---:|---:|---:|---:|---:|
{{- range .Describe}}
| {{.Column}} | {{.Count}} | {{num .Mean}} | {{num .Std}} | {{num .Min}} | {{num .Q25}} | {{num .Median}} | {{num .Q75}} | {{num .Max}} |
{{- end}}
{{if .RegionMeans}}
## Mean Home Price by Region

| Region | Listings | Mean price [USD] |
|---|---:|---:|
{{- range .RegionMeans}}
| {{.Group}} | {{.Count}} | {{price .Mean}} |
{{- end}}
{{end}}
{{- if .Correlations}}
## Correlation: {{.FocusRegion}} Region States

Pearson correlation between area and price per state.

| State | Listings | r |
|---|---:|---:|
{{- range .Correlations}}
| {{.Group}} | {{.Count}} | {{num .R}} |
{{- end}}
{{end}}
{{- if .Charts}}
## Charts
{{range .Charts}}
### {{.Title}}

![{{.Title}}]({{.File}})
{{end}}
{{- end}}`))

// WriteMarkdown renders the report as Markdown into path.
func WriteMarkdown(path string, s *Summary) error {
	var buf bytes.Buffer
	if err := markdown.Execute(&buf, s); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Insights derives short observations from the computed statistics.
func (s *Summary) Insights() []string {
	var out []string

	b := s.Bounds
	out = append(out, fmt.Sprintf("Listings span latitudes %.2f to %.2f and longitudes %.2f to %.2f.",
		b.BottomLeft.Lat, b.TopRight.Lat, b.BottomLeft.Lon, b.TopRight.Lon))

	if p, ok := s.Column(models.ColPriceUSD); ok && p.Count > 0 {
		shape := "roughly symmetric"
		switch {
		case p.Mean > p.Median*1.05:
			shape = "skewed to the right, pulled up by a few expensive listings"
		case p.Mean < p.Median*0.95:
			shape = "skewed to the left"
		}
		out = append(out, fmt.Sprintf("Prices are %s: mean %s against a median of %s.",
			shape, formatPrice(p.Mean), formatPrice(p.Median)))
	}

	if n := len(s.RegionMeans); n > 1 {
		hi, lo := s.RegionMeans[0], s.RegionMeans[0]
		for _, m := range s.RegionMeans[1:] {
			if m.Mean > hi.Mean {
				hi = m
			}
			if m.Mean < lo.Mean {
				lo = m
			}
		}
		out = append(out, fmt.Sprintf("%s is the most expensive region on average (%s) and %s the cheapest (%s).",
			hi.Group, formatPrice(hi.Mean), lo.Group, formatPrice(lo.Mean)))
	}

	if a := s.AreaBox; a.Count > 0 {
		out = append(out, fmt.Sprintf("Half of the homes measure between %s and %s m²; %d are outliers beyond 1.5 IQR.",
			formatNum(a.Q1), formatNum(a.Q3), len(a.Outliers)))
	}

	switch {
	case s.StateRows == 0:
		out = append(out, fmt.Sprintf("No listings were found for %s.", s.FocusState))
	case math.IsNaN(s.StateR):
		out = append(out, fmt.Sprintf("%s has %d listings, too few or too uniform to correlate area with price.", s.FocusState, s.StateRows))
	default:
		out = append(out, fmt.Sprintf("In %s, area and price show a %s correlation (r = %.2f over %d listings).",
			s.FocusState, strength(s.StateR), s.StateR, s.StateRows))
	}

	return out
}

func strength(r float64) string {
	dir := "positive"
	if r < 0 {
		dir = "negative"
	}
	switch a := math.Abs(r); {
	case a >= 0.7:
		return "strong " + dir
	case a >= 0.4:
		return "moderate " + dir
	case a >= 0.1:
		return "weak " + dir
	}
	return "negligible"
}

// formatNum prints two decimals, or "n/a" for undefined statistics.
func formatNum(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

var usd = message.NewPrinter(language.English)

// formatPrice prints a USD amount with thousands separators.
func formatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return usd.Sprintf("$%.2f", v)
}
