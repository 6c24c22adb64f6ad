package app

import (
	"context"
	"strings"
	"testing"

	"relialab/adapters/memory"
	"relialab/domain/core"
	"relialab/domain/lifedata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportForWeibullAnalysis(t *testing.T) {
	svc := newTestService(memory.NewAnalysisRepository(), nil)
	ctx := context.Background()

	a, err := svc.Fit(ctx, FitRequest{Name: "Pump seals", Sample: seals})
	require.NoError(t, err)

	report, err := svc.Report(ctx, a.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.Markdown, "# Pump seals\n"))
	for _, want := range []string{"## Parameters", "| beta |", "| eta |", "| B1 |", "| B10 |", "| B50 |", "14 failures, 0 suspensions.", "| R² | 0.8147 |"} {
		assert.Contains(t, report.Markdown, want)
	}
	assert.Contains(t, report.HTML, "<table>")
	assert.Contains(t, report.HTML, `id="parameters"`)
}

func TestReportWithoutParameters(t *testing.T) {
	a := &lifedata.Analysis{
		Model:   lifedata.FittedModel{Distribution: lifedata.Normal, Method: lifedata.MethodSRM},
		Sample:  lifedata.Sample{Suspensions: []float64{10}},
		Warning: "insufficient data for analysis",
	}
	md := BuildReportMarkdown(a)

	assert.Contains(t, md, "# Life-data analysis")
	assert.Contains(t, md, "No parameters could be estimated")
	assert.Contains(t, md, "> **Warning:** insufficient data for analysis")
	assert.Contains(t, md, "| R² | n/a |")
	assert.NotContains(t, md, "Characteristic life")
	assert.NotContains(t, md, "Reliability at selected times")
}

func TestReportNotesOverridesAndFallback(t *testing.T) {
	a := &lifedata.Analysis{
		Model: lifedata.FittedModel{
			Distribution:    lifedata.Weibull,
			Method:          lifedata.MethodSRM,
			RequestedMethod: lifedata.MethodMLE,
			FellBack:        true,
			Parameters:      lifedata.WeibullParams{Beta: 1, Eta: 100},
		},
		Sample:    lifedata.Sample{Failures: []float64{50, 100}},
		Overrides: map[string]float64{"beta": 2, "eta": 100},
	}
	md := BuildReportMarkdown(a)

	assert.Contains(t, md, "(requested MLE, fell back)")
	assert.Contains(t, md, "Manual overrides are in effect.")
	assert.Contains(t, md, "| beta | 2 |")
	// R(100) for beta=2, eta=100
	assert.Contains(t, md, "| 100 | 0.3679 | 0.6321 |")
}

func TestReportMissingAnalysis(t *testing.T) {
	svc := newTestService(memory.NewAnalysisRepository(), nil)
	_, err := svc.Report(context.Background(), core.NewAnalysisID())
	assert.True(t, core.IsNotFoundError(err))
}
