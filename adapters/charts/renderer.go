package charts

import (
	"fmt"
	"io"
	"sort"

	"relialab/domain/lifedata"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// gap is the echarts marker for a missing value; the line breaks there
const gap = "-"

// Renderer builds echarts HTML for fitted life-data models
type Renderer struct {
	theme string
}

// NewRenderer creates a renderer with the default light theme
func NewRenderer() *Renderer {
	return &Renderer{theme: types.ThemeWesteros}
}

func (r *Renderer) globalOptions(title, xName, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Theme:     r.theme,
			PageTitle: title,
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Title: "Save",
				},
				DataZoom: &opts.ToolBoxFeatureDataZoom{
					Show: true,
				},
			},
		}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Type: "value"}),
	}
}

// convertCurveRows converts one model's column to chart points, nulls become gaps
func convertCurveRows(rows []lifedata.CurveRow, name string) []opts.LineData {
	items := make([]opts.LineData, 0, len(rows))
	for _, row := range rows {
		if v := row.Values[name]; v != nil {
			items = append(items, opts.LineData{Value: []interface{}{row.Time, *v}})
		} else {
			items = append(items, opts.LineData{Value: []interface{}{row.Time, gap}})
		}
	}
	return items
}

// seriesNames returns the model columns present in rows, sorted
func seriesNames(rows []lifedata.CurveRow) []string {
	if len(rows) == 0 {
		return nil
	}
	names := rows[0].ModelNames()
	sort.Strings(names)
	return names
}

// CurveChart draws one line per model for a single curve kind
func (r *Renderer) CurveChart(title, yName string, rows []lifedata.CurveRow) *charts.Line {
	chart := charts.NewLine()
	chart.SetGlobalOptions(r.globalOptions(title, "time", yName)...)
	for _, name := range seriesNames(rows) {
		chart.AddSeries(name, convertCurveRows(rows, name))
	}
	chart.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: false}))
	return chart
}

// ProbabilityPlot draws the linearized median ranks with the fitted line overlaid
func (r *Renderer) ProbabilityPlot(title string, plot *lifedata.PlotData) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(r.globalOptions(title, "x", "y")...)
	if plot == nil {
		return scatter
	}

	points := make([]opts.ScatterData, 0, len(plot.Points))
	for _, p := range plot.Points {
		points = append(points, opts.ScatterData{Value: [2]float64{p.X, p.Y}, SymbolSize: 6})
	}
	scatter.AddSeries("Median ranks", points)

	line := charts.NewLine()
	line.AddSeries(fmt.Sprintf("Fit (R²=%.4f)", plot.RSquared), []opts.LineData{
		{Value: [2]float64{plot.Line[0].X, plot.Line[0].Y}},
		{Value: [2]float64{plot.Line[1].X, plot.Line[1].Y}},
	})
	scatter.Overlap(line)
	return scatter
}

// BoundsChart draws the fitted line and its confidence band in linearized coordinates
func (r *Renderer) BoundsChart(bounds lifedata.BoundsResult) *charts.Line {
	title := fmt.Sprintf("Weibull %.0f%% confidence bounds", bounds.ConfidenceLevel*100)
	chart := charts.NewLine()
	chart.SetGlobalOptions(r.globalOptions(title, "ln t", "β·ln t − β·ln η")...)

	convert := func(points []lifedata.BoundPoint) []opts.LineData {
		items := make([]opts.LineData, 0, len(points))
		for _, p := range points {
			items = append(items, opts.LineData{Value: [2]float64{p.X, p.Y}})
		}
		return items
	}
	chart.AddSeries("Lower", convert(bounds.Lower)).
		AddSeries("Fit", convert(bounds.Line)).
		AddSeries("Upper", convert(bounds.Upper))
	return chart
}

// curveCharts builds the four standard curve charts for a series
func (r *Renderer) curveCharts(series lifedata.CurveSeries) []components.Charter {
	return []components.Charter{
		r.CurveChart("Reliability R(t)", "R(t)", series.Reliability),
		r.CurveChart("Unreliability F(t)", "F(t)", series.Unreliability),
		r.CurveChart("Probability density f(t)", "f(t)", series.Density),
		r.CurveChart("Hazard rate λ(t)", "λ(t)", series.Hazard),
	}
}

// RenderAnalysis writes a page with the probability plot, curves and, when
// given, confidence bounds for one analysis.
func (r *Renderer) RenderAnalysis(w io.Writer, a *lifedata.Analysis, series lifedata.CurveSeries, bounds *lifedata.BoundsResult) error {
	page := components.NewPage()
	page.PageTitle = a.Name
	page.SetLayout(components.PageFlexLayout)

	title := fmt.Sprintf("%s probability plot (%s)", a.Model.Distribution, a.Model.Method)
	page.AddCharts(r.ProbabilityPlot(title, a.Model.Plot))
	page.AddCharts(r.curveCharts(series)...)
	if bounds != nil && len(bounds.Line) > 0 {
		page.AddCharts(r.BoundsChart(*bounds))
	}
	return page.Render(w)
}

// RenderComparison writes a page with curves for several models overlaid
func (r *Renderer) RenderComparison(w io.Writer, title string, series lifedata.CurveSeries) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(r.curveCharts(series)...)
	return page.Render(w)
}
