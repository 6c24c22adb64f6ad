package reliability

import (
	"errors"
	"fmt"
	"math"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/internal"
)

// Engine is the life-data estimation engine. It holds no mutable state;
// every call is a pure function of its arguments and safe for concurrent use.
type Engine struct {
	logger *internal.Logger
}

// NewEngine creates an engine. A nil logger uses the process default.
func NewEngine(logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{logger: logger.With("ReliabilityEngine")}
}

// EstimateParameters fits a distribution family to failure/suspension times.
//
// SRM and RRX use rank regression. MLE uses Newton-Raphson for Weibull and
// sample moments for Normal, Lognormal and Exponential; families without a
// likelihood estimator, and Weibull runs that fail to converge, fall back to
// SRM and are marked FellBack. MLE results still carry the SRM probability plot.
//
// On error the returned model has nil Parameters but still reports counts
// and the requested method, so callers can render "no result" for it.
func (e *Engine) EstimateParameters(dist lifedata.Distribution, failures, suspensions []float64, method lifedata.Method) (lifedata.FittedModel, error) {
	sample := lifedata.Sample{Failures: failures, Suspensions: suspensions}
	model := lifedata.FittedModel{
		Distribution:    dist,
		Method:          method,
		RequestedMethod: method,
		FailureCount:    len(failures),
		SuspensionCount: len(suspensions),
		MaxTime:         sample.MaxTime(),
		LogLikelihood:   math.NaN(),
	}

	if _, err := lifedata.ParseDistribution(string(dist)); err != nil {
		return model, err
	}
	if method != lifedata.MethodSRM && method != lifedata.MethodRRX && method != lifedata.MethodMLE {
		return model, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}
	if err := sample.Validate(); err != nil {
		return model, err
	}
	if len(failures) == 0 {
		return model, fmt.Errorf("%w: no failures", core.ErrInsufficientData)
	}

	regressionMethod := method
	if method == lifedata.MethodMLE {
		regressionMethod = lifedata.MethodSRM
	}
	rrParams, plot, rrErr := RankRegression(dist, failures, suspensions, regressionMethod)
	model.Plot = plot

	var params lifedata.Parameters
	switch method {
	case lifedata.MethodSRM, lifedata.MethodRRX:
		if rrErr != nil {
			return model, rrErr
		}
		params = rrParams
	case lifedata.MethodMLE:
		var err error
		params, err = e.estimateLikelihood(dist, failures, suspensions)
		if err != nil {
			if !errors.Is(err, core.ErrNonConvergence) {
				return model, err
			}
			if rrErr != nil {
				return model, fmt.Errorf("%w; rank regression fallback failed: %v", err, rrErr)
			}
			e.logger.Debug("%s MLE abandoned, using SRM estimate: %v", dist, err)
			params = rrParams
			model.Method = lifedata.MethodSRM
			model.FellBack = true
		}
	}

	model.Parameters = params
	model.LogLikelihood = LogLikelihood(params, failures, suspensions)
	return model, nil
}

// estimateLikelihood runs the MLE-method estimator for a family. Families
// without one report ErrNonConvergence so the caller takes the SRM path.
func (e *Engine) estimateLikelihood(dist lifedata.Distribution, failures, suspensions []float64) (lifedata.Parameters, error) {
	switch dist {
	case lifedata.Weibull:
		params, outcome, err := WeibullMLE(failures, suspensions)
		if err != nil {
			return nil, err
		}
		e.logger.Trace("weibull MLE: beta=%.6g eta=%.6g iterations=%d converged=%v", params.Beta, params.Eta, outcome.Iterations, outcome.Converged)
		return params, nil
	case lifedata.Normal:
		return NormalClosedForm(failures)
	case lifedata.Lognormal:
		return LognormalClosedForm(failures)
	case lifedata.Exponential:
		return ExponentialClosedForm(failures, suspensions)
	}
	return nil, fmt.Errorf("%w: no likelihood estimator for %s", core.ErrNonConvergence, dist)
}

// EstimateGrouped expands grouped counts into repeated times and estimates
// exactly as EstimateParameters would on the expanded arrays.
func (e *Engine) EstimateGrouped(dist lifedata.Distribution, grouped lifedata.GroupedSample, method lifedata.Method) (lifedata.FittedModel, error) {
	sample := grouped.Expand()
	return e.EstimateParameters(dist, sample.Failures, sample.Suspensions, method)
}
