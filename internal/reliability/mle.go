package reliability

import (
	"fmt"
	"math"

	"relialab/domain/core"
	"relialab/domain/lifedata"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Newton-Raphson settings for the Weibull shape parameter
const (
	mleInitialBeta    = 1.0
	mleMaxIterations  = 100
	mleTolerance      = 1e-7
	mleMinSecondDeriv = 1e-10
	mleMinBeta        = 0.01
)

// MLEOutcome reports how the Weibull Newton-Raphson iteration finished
type MLEOutcome struct {
	Iterations int
	Converged  bool
}

// weibullSums evaluates Σ tᵢ^β, Σ tᵢ^β ln tᵢ and Σ tᵢ^β (ln tᵢ)² over all observations
func weibullSums(times, logs []float64, beta float64) (s0, s1, s2 float64) {
	for i, t := range times {
		w := math.Pow(t, beta)
		s0 += w
		s1 += w * logs[i]
		s2 += w * logs[i] * logs[i]
	}
	return s0, s1, s2
}

// WeibullMLE estimates Weibull parameters for right-censored data by
// Newton-Raphson on the profile log-likelihood in β. It returns
// ErrNonConvergence when an update leaves the positive reals; callers are
// expected to fall back to rank regression in that case.
func WeibullMLE(failures, suspensions []float64) (lifedata.WeibullParams, MLEOutcome, error) {
	r := float64(len(failures))
	if r == 0 {
		return lifedata.WeibullParams{}, MLEOutcome{}, fmt.Errorf("%w: no failures", core.ErrInsufficientData)
	}

	// β is invariant to rescaling time; work on t/max to keep t^β finite
	all := make([]float64, 0, len(failures)+len(suspensions))
	all = append(all, failures...)
	all = append(all, suspensions...)
	scale := floats.Max(all)
	times := make([]float64, len(all))
	logs := make([]float64, len(all))
	sumLogFailures := 0.0
	for i, t := range all {
		times[i] = t / scale
		logs[i] = math.Log(times[i])
		if i < len(failures) {
			sumLogFailures += logs[i]
		}
	}

	beta := mleInitialBeta
	outcome := MLEOutcome{}
	for outcome.Iterations < mleMaxIterations {
		outcome.Iterations++
		s0, s1, s2 := weibullSums(times, logs, beta)

		first := r/beta + sumLogFailures - r*s1/s0
		second := -r/(beta*beta) - r*(s2*s0-s1*s1)/(s0*s0)
		if math.Abs(second) < mleMinSecondDeriv {
			break
		}

		next := beta - first/second
		if !isFinite(next) || next <= 0 {
			return lifedata.WeibullParams{}, outcome, fmt.Errorf("%w: shape update %v at iteration %d", core.ErrNonConvergence, next, outcome.Iterations)
		}
		if math.Abs(next-beta) < mleTolerance {
			beta = next
			outcome.Converged = true
			break
		}
		beta = next
	}

	beta = math.Max(beta, mleMinBeta)
	s0, _, _ := weibullSums(times, logs, beta)
	eta := scale * math.Pow(s0/r, 1/beta)
	return lifedata.WeibullParams{Beta: beta, Eta: eta}, outcome, nil
}

// sampleMoments returns the mean and Bessel-corrected standard deviation,
// using the population form when only one value is available.
func sampleMoments(values []float64) (mean, stdDev float64, err error) {
	mean, err = stats.Mean(values)
	if err != nil {
		return 0, 0, err
	}
	if len(values) == 1 {
		stdDev, err = stats.StandardDeviationPopulation(values)
	} else {
		stdDev, err = stats.StandardDeviationSample(values)
	}
	return mean, stdDev, err
}

// NormalClosedForm fits a normal model to the failure times by sample moments
func NormalClosedForm(failures []float64) (lifedata.NormalParams, error) {
	mean, sd, err := sampleMoments(failures)
	if err != nil {
		return lifedata.NormalParams{}, fmt.Errorf("%w: %v", core.ErrInsufficientData, err)
	}
	return lifedata.NormalParams{Mean: mean, StdDev: sd}, nil
}

// LognormalClosedForm fits a lognormal model to the log failure times by sample moments
func LognormalClosedForm(failures []float64) (lifedata.LognormalParams, error) {
	logs := make([]float64, len(failures))
	for i, t := range failures {
		logs[i] = math.Log(t)
	}
	mean, sd, err := sampleMoments(logs)
	if err != nil {
		return lifedata.LognormalParams{}, fmt.Errorf("%w: %v", core.ErrInsufficientData, err)
	}
	return lifedata.LognormalParams{LogMean: mean, LogStdDev: sd}, nil
}

// ExponentialClosedForm sets λ to the reciprocal mean of every observed time,
// suspensions included. This is not the censored-data MLE r/Σt.
func ExponentialClosedForm(failures, suspensions []float64) (lifedata.ExponentialParams, error) {
	all := make([]float64, 0, len(failures)+len(suspensions))
	all = append(all, failures...)
	all = append(all, suspensions...)
	mean, err := stats.Mean(all)
	if err != nil || mean <= 0 {
		return lifedata.ExponentialParams{}, fmt.Errorf("%w: mean time %v", core.ErrInsufficientData, mean)
	}
	return lifedata.ExponentialParams{Lambda: 1 / mean}, nil
}
