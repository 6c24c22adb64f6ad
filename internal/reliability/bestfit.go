package reliability

import (
	"math"
	"sort"

	"relialab/domain/core"
	"relialab/domain/lifedata"
)

// FindBestDistribution fits every family by SRM rank regression, scores each
// fit by its log-likelihood against the full dataset, and ranks them by
// log-likelihood with ties broken by higher R². Families that cannot be fit
// stay in the result, ranked last, with their estimation error.
func (e *Engine) FindBestDistribution(failures, suspensions []float64) lifedata.BestFitResult {
	results := make([]lifedata.DistributionFit, 0, len(lifedata.AllDistributions))
	for _, dist := range lifedata.AllDistributions {
		fit := lifedata.DistributionFit{
			Distribution:  dist,
			LogLikelihood: math.Inf(-1),
			RSquared:      math.NaN(),
		}
		model, err := e.EstimateParameters(dist, failures, suspensions, lifedata.MethodSRM)
		switch {
		case err != nil:
			fit.Err = err
		case !model.HasParameters():
			fit.Parameters = model.Parameters
			fit.Err = core.ErrInvalidParameters
		default:
			fit.Parameters = model.Parameters
			fit.LogLikelihood = model.LogLikelihood
			fit.RSquared = model.RSquared()
		}
		results = append(results, fit)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return betterFit(results[i], results[j])
	})

	best := lifedata.BestFitResult{Results: results}
	if len(results) > 0 && !math.IsInf(results[0].LogLikelihood, -1) {
		best.Best = results[0].Distribution
	}
	return best
}

// betterFit orders fits by log-likelihood, then R²
func betterFit(a, b lifedata.DistributionFit) bool {
	if a.LogLikelihood != b.LogLikelihood {
		return a.LogLikelihood > b.LogLikelihood
	}
	return rSquaredOrZero(a.RSquared) > rSquaredOrZero(b.RSquared)
}

func rSquaredOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
