package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kass/go-realestate/pkg/normalize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2)
)

// TableInfo renders row accounting and columns of a unified table.
func TableInfo(t normalize.Table, a, b normalize.Stats) string {
	var sb strings.Builder
	sb.WriteString(subtitleStyle.Render("Combined Dataset Info"))
	sb.WriteString("\n\n")
	for _, st := range []normalize.Stats{a, b} {
		fmt.Fprintf(&sb, "%s  read %s  kept %s  %s\n",
			st.Source,
			statStyle.Render(fmt.Sprintf("%d", st.Read)),
			statStyle.Render(fmt.Sprintf("%d", st.Kept)),
			dimStyle.Render(fmt.Sprintf("(dropped %d missing, %d malformed)", st.DroppedMissing, st.Malformed)))
	}
	fmt.Fprintf(&sb, "\nrows     %s\ncolumns  %s",
		statStyle.Render(fmt.Sprintf("%d", t.Len())),
		strings.Join(t.Columns, ", "))
	return boxStyle.Render(sb.String())
}

// WriteConsole prints a styled summary of a rendered report.
func WriteConsole(w io.Writer, s *Summary, outDir string) error {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Brazil Real Estate Analysis"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("run " + s.RunID))
	sb.WriteString("\n\n")

	for _, d := range s.Describe {
		fmt.Fprintf(&sb, "%-10s mean %s  median %s  max %s\n",
			d.Column,
			statStyle.Render(formatNum(d.Mean)),
			statStyle.Render(formatNum(d.Median)),
			statStyle.Render(formatNum(d.Max)))
	}

	if len(s.RegionMeans) > 0 {
		sb.WriteString("\n")
		sb.WriteString(subtitleStyle.Render("Mean price by region"))
		sb.WriteString("\n")
		for _, m := range s.RegionMeans {
			fmt.Fprintf(&sb, "  %-14s %s\n", m.Group, statStyle.Render(formatPrice(m.Mean)))
		}
	}

	if len(s.Correlations) > 0 {
		sb.WriteString("\n")
		sb.WriteString(subtitleStyle.Render(s.FocusRegion + " area/price correlation"))
		sb.WriteString("\n")
		for _, c := range s.Correlations {
			fmt.Fprintf(&sb, "  %-20s %s\n", c.Group, statStyle.Render(formatNum(c.R)))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%d charts, %s, %s written to %s",
		len(s.Charts), MarkdownFile, WorkbookFile, outDir)))

	_, err := fmt.Fprintln(w, boxStyle.Render(sb.String()))
	return err
}
