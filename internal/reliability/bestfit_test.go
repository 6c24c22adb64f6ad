package reliability

import (
	"encoding/json"
	"math"
	"testing"

	"relialab/domain/lifedata"
)

func TestFindBestDistributionFixture(t *testing.T) {
	result := newTestEngine().FindBestDistribution(fixtureFailures, nil)

	if len(result.Results) != len(lifedata.AllDistributions) {
		t.Fatalf("expected %d results, got %d", len(lifedata.AllDistributions), len(result.Results))
	}
	if result.Best != lifedata.Lognormal {
		t.Errorf("best = %s, want lognormal", result.Best)
	}
	if result.Results[0].Distribution != result.Best {
		t.Errorf("best %s is not ranked first (%s)", result.Best, result.Results[0].Distribution)
	}
	for i := 1; i < len(result.Results); i++ {
		if result.Results[i].LogLikelihood > result.Results[i-1].LogLikelihood {
			t.Errorf("results not sorted by log-likelihood at %d", i)
		}
	}

	for _, fit := range result.Results {
		model, err := newTestEngine().EstimateParameters(fit.Distribution, fixtureFailures, nil, lifedata.MethodSRM)
		if err != nil {
			t.Fatalf("%s: %v", fit.Distribution, err)
		}
		want := LogLikelihood(model.Parameters, fixtureFailures, nil)
		if fit.LogLikelihood != want {
			t.Errorf("%s: log-likelihood %v, want %v from its own SRM parameters", fit.Distribution, fit.LogLikelihood, want)
		}
	}
}

func TestFindBestDistributionKeepsFailedFamilies(t *testing.T) {
	result := newTestEngine().FindBestDistribution([]float64{10}, nil)

	if result.Best != "" {
		t.Errorf("no family can fit a single failure, got best %s", result.Best)
	}
	for _, fit := range result.Results {
		if fit.Err == nil {
			t.Errorf("%s: expected an estimation error", fit.Distribution)
		}
		if !math.IsInf(fit.LogLikelihood, -1) {
			t.Errorf("%s: log-likelihood %v, want -Inf", fit.Distribution, fit.LogLikelihood)
		}
	}
}

func TestBetterFitBreaksTiesOnRSquared(t *testing.T) {
	a := lifedata.DistributionFit{Distribution: lifedata.Weibull, LogLikelihood: -50, RSquared: 0.91}
	b := lifedata.DistributionFit{Distribution: lifedata.Gumbel, LogLikelihood: -50, RSquared: 0.95}
	c := lifedata.DistributionFit{Distribution: lifedata.Normal, LogLikelihood: -49, RSquared: 0.10}

	if betterFit(a, b) || !betterFit(b, a) {
		t.Errorf("equal log-likelihood must prefer higher R²")
	}
	if !betterFit(c, b) {
		t.Errorf("higher log-likelihood must win regardless of R²")
	}
	d := lifedata.DistributionFit{LogLikelihood: -50, RSquared: math.NaN()}
	if betterFit(d, a) {
		t.Errorf("missing R² must rank below a finite one")
	}
}

func TestFindBestDistributionEncodesOverflowedFamilies(t *testing.T) {
	// Extreme spread overflows some families' parameters
	failures := []float64{1e-300}
	for i := 0; i < 22; i++ {
		failures = append(failures, 1e300)
	}
	result := newTestEngine().FindBestDistribution(failures, nil)
	if len(result.Results) != len(lifedata.AllDistributions) {
		t.Fatalf("expected %d results, got %d", len(lifedata.AllDistributions), len(result.Results))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("best-fit result must encode even with non-finite parameters: %v", err)
	}
	var decoded struct {
		Results []struct {
			Distribution string `json:"distribution"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Results) != len(lifedata.AllDistributions) {
		t.Errorf("expected every family in the encoded result, got %d", len(decoded.Results))
	}
}
