package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"relialab/domain/core"
	"relialab/domain/lifedata"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"
)

// Report is a rendered analysis report
type Report struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// reportFractions are the shares of the largest observed time at which R(t) is tabulated
var reportFractions = []float64{0.25, 0.5, 0.75, 1}

// Report builds a Markdown report for a stored analysis and renders it to HTML
func (s *AnalysisService) Report(ctx context.Context, id core.AnalysisID) (*Report, error) {
	analysis, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	md := BuildReportMarkdown(analysis)
	return &Report{Markdown: md, HTML: RenderMarkdown(md)}, nil
}

// RenderMarkdown converts Markdown to HTML with tables and heading IDs enabled.
// Raw HTML in the source is dropped.
func RenderMarkdown(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML})
	return string(markdown.Render(doc, renderer))
}

// BuildReportMarkdown writes the parameters, fit statistics, sample
// statistics and characteristic lives of an analysis as Markdown.
func BuildReportMarkdown(a *lifedata.Analysis) string {
	var b strings.Builder

	title := a.Name
	if title == "" {
		title = "Life-data analysis"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Distribution:** %s\n", a.Model.Distribution)
	fmt.Fprintf(&b, "- **Method:** %s", a.Model.Method)
	if a.Model.FellBack {
		fmt.Fprintf(&b, " (requested %s, fell back)", a.Model.RequestedMethod)
	}
	b.WriteString("\n")
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", a.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if a.Warning != "" {
		fmt.Fprintf(&b, "\n> **Warning:** %s\n", a.Warning)
	}

	params := a.Parameters()
	b.WriteString("\n## Parameters\n\n")
	if params == nil || !params.Valid() {
		b.WriteString("No parameters could be estimated for this sample.\n")
	} else {
		if a.Overridden() {
			b.WriteString("Manual overrides are in effect.\n\n")
		}
		writeValuesTable(&b, params.Values())
	}

	b.WriteString("\n## Goodness of fit\n\n")
	b.WriteString("| Statistic | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| R² | %s |\n", formatScore(a.Model.RSquared(), "%.4f"))
	fmt.Fprintf(&b, "| Log-likelihood | %s |\n", formatScore(a.Model.LogLikelihood, "%.4f"))

	b.WriteString("\n## Sample\n\n")
	writeSampleStats(&b, a.Sample)

	if params != nil && params.Valid() {
		if w, ok := params.(lifedata.WeibullParams); ok {
			b.WriteString("\n## Characteristic life\n\n")
			b.WriteString("| Life | Time |\n|---|---|\n")
			for _, q := range []float64{0.01, 0.10, 0.50} {
				fmt.Fprintf(&b, "| B%g | %.4g |\n", q*100, w.BLife(q))
			}
			fmt.Fprintf(&b, "| η (63.2%%) | %.4g |\n", w.Eta)
		}

		if maxT := a.Sample.MaxTime(); maxT > 0 {
			b.WriteString("\n## Reliability at selected times\n\n")
			b.WriteString("| Time | R(t) | F(t) |\n|---|---|---|\n")
			for _, f := range reportFractions {
				t := maxT * f
				r := params.Reliability(t)
				fmt.Fprintf(&b, "| %.4g | %s | %s |\n", t, formatScore(r, "%.4f"), formatScore(1-r, "%.4f"))
			}
		}
	}
	return b.String()
}

func writeValuesTable(b *strings.Builder, values map[string]float64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %.6g |\n", k, values[k])
	}
}

func writeSampleStats(b *strings.Builder, sample lifedata.Sample) {
	fmt.Fprintf(b, "%d failures, %d suspensions.\n\n", len(sample.Failures), len(sample.Suspensions))
	if len(sample.Failures) == 0 {
		return
	}

	data := stats.Float64Data(sample.Failures)
	mean, _ := data.Mean()
	median, _ := data.Median()
	lo, _ := data.Min()
	hi, _ := data.Max()

	b.WriteString("| Failure times | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Mean | %.4g |\n", mean)
	fmt.Fprintf(b, "| Median | %.4g |\n", median)
	fmt.Fprintf(b, "| Min | %.4g |\n", lo)
	fmt.Fprintf(b, "| Max | %.4g |\n", hi)
	if len(sample.Failures) > 1 {
		sd, _ := data.StandardDeviationSample()
		fmt.Fprintf(b, "| Std. deviation | %.4g |\n", sd)
	}
}

func formatScore(v float64, format string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}
