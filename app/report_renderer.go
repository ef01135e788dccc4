package app

import (
	"fmt"
	"strings"

	"adpulse/domain/analysis"
	"adpulse/domain/metrics"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderReport formats a report as markdown and as HTML converted from it
func RenderReport(report *analysis.Report) (string, string) {
	md := RenderMarkdown(report)

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return md, string(markdown.ToHTML([]byte(md), p, renderer))
}

// RenderMarkdown formats a report as a markdown document
func RenderMarkdown(report *analysis.Report) string {
	label := report.Source
	if src, ok := metrics.Lookup(report.Source); ok {
		label = src.Label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s report for %s\n\n", label, report.AccountID)
	fmt.Fprintf(&b, "Generated %s from %d records over %d days. Model %s, confidence %.2f.\n\n",
		report.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), report.RecordCount, report.Days,
		report.ModelVersion, report.ConfidenceScore)

	q := report.Quality
	b.WriteString("## Data quality\n\n")
	b.WriteString("| Score | Completeness | Consistency | Recency | Latest data age (days) |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %.2f | %.2f | %.2f | %.2f | %d |\n\n",
		q.Score, q.Details.Completeness, q.Details.Consistency, q.Details.Recency, q.Details.LatestDataAge)

	writeList(&b, "Insights", report.Insights)

	if len(report.Metrics) > 0 {
		b.WriteString("## Metrics\n\n")
		b.WriteString("| Metric | Latest | Mean | Trend | Change % | Forecast | Forecast confidence |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, m := range report.Metrics {
			fmt.Fprintf(&b, "| %s | %.2f | %.2f | %s | %.2f | %.2f | %.2f |\n",
				m.Metric, m.Latest, m.Mean, m.Trend.Direction, m.Trend.ChangePercentage,
				m.Forecast.Value, m.Forecast.Confidence)
		}
		b.WriteString("\n")
	}

	if len(report.Weekly) > 0 {
		var fields []string
		if src, ok := metrics.Lookup(report.Source); ok {
			fields = append(src.SumFields, src.AvgFields...)
		}
		b.WriteString("## Weekly totals\n\n")
		b.WriteString("| Week of | Days |")
		for _, f := range fields {
			fmt.Fprintf(&b, " %s |", f)
		}
		b.WriteString("\n|---|---|")
		b.WriteString(strings.Repeat("---|", len(fields)))
		b.WriteString("\n")
		for _, w := range report.Weekly {
			fmt.Fprintf(&b, "| %s | %d |", w.Period, w.Count)
			for _, f := range fields {
				fmt.Fprintf(&b, " %.2f |", w.Values[f])
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(report.Anomalies) > 0 {
		b.WriteString("## Anomalies\n\n")
		for _, a := range report.Anomalies {
			fmt.Fprintf(&b, "- %s on %s: %.2f (expected %.2f to %.2f)\n", a.Metric, a.Date, a.Value, a.Lower, a.Upper)
		}
		b.WriteString("\n")
	}

	writeList(&b, "Recommendations", report.Recommendations)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
