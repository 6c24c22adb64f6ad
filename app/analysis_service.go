package app

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/internal"
	"relialab/internal/config"
	"relialab/internal/errors"
	"relialab/internal/reliability"
	"relialab/ports"

	"golang.org/x/sync/errgroup"
)

// AnalysisService orchestrates estimation, persistence and reporting of life-data analyses
type AnalysisService struct {
	engine     *reliability.Engine
	repo       ports.AnalysisRepository
	summarizer ports.Summarizer
	defaults   config.AnalysisConfig
	logger     *internal.Logger
	now        func() time.Time
}

// FitRequest describes one estimation to run and store. Grouped, when set,
// takes precedence over Sample.
type FitRequest struct {
	Name         string                  `json:"name"`
	Distribution string                  `json:"distribution"`
	Method       string                  `json:"method"`
	Sample       lifedata.Sample         `json:"sample"`
	Grouped      *lifedata.GroupedSample `json:"grouped,omitempty"`
}

// ModelSpec selects a family and method for FitModels
type ModelSpec struct {
	Distribution string `json:"distribution"`
	Method       string `json:"method"`
}

// ModelResult is one FitModels outcome. Warning is set when estimation
// degraded to "no result" or fell back.
type ModelResult struct {
	Model   lifedata.FittedModel `json:"model"`
	Warning string               `json:"warning,omitempty"`
}

// NewAnalysisService creates the service. summarizer may be nil, which disables Summarize.
func NewAnalysisService(engine *reliability.Engine, repo ports.AnalysisRepository, summarizer ports.Summarizer, defaults config.AnalysisConfig, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		engine:     engine,
		repo:       repo,
		summarizer: summarizer,
		defaults:   defaults,
		logger:     logger.With("AnalysisService"),
		now:        time.Now,
	}
}

// resolve applies configured defaults and parses the family and method
func (s *AnalysisService) resolve(dist, method string) (lifedata.Distribution, lifedata.Method, error) {
	if strings.TrimSpace(dist) == "" {
		dist = s.defaults.DefaultDistribution
	}
	if strings.TrimSpace(method) == "" {
		method = s.defaults.DefaultMethod
	}
	d, err := lifedata.ParseDistribution(dist)
	if err != nil {
		return "", "", errors.WithCode(errors.CodeInvalidInput, err)
	}
	m, err := lifedata.ParseMethod(method)
	if err != nil {
		return "", "", errors.WithCode(errors.CodeInvalidInput, err)
	}
	return d, m, nil
}

// checkSample validates observations and the configured size cap
func (s *AnalysisService) checkSample(sample lifedata.Sample) error {
	if err := sample.Validate(); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	return s.checkCount(len(sample.Failures) + len(sample.Suspensions))
}

func (s *AnalysisService) checkCount(n int) error {
	if limit := s.defaults.MaxObservations; limit > 0 && n > limit {
		return errors.InvalidInput(fmt.Sprintf("sample has %d observations, limit is %d", n, limit))
	}
	return nil
}

// ExpandGrouped flattens grouped counts after checking their total against
// the configured size cap, so oversized quantities are never allocated.
func (s *AnalysisService) ExpandGrouped(grouped lifedata.GroupedSample) (lifedata.Sample, error) {
	if err := s.checkCount(grouped.Count()); err != nil {
		return lifedata.Sample{}, err
	}
	return grouped.Expand(), nil
}

// estimate runs the engine and converts estimation failures into a warning
func (s *AnalysisService) estimate(dist lifedata.Distribution, method lifedata.Method, sample lifedata.Sample) (lifedata.FittedModel, string, error) {
	model, err := s.engine.EstimateParameters(dist, sample.Failures, sample.Suspensions, method)
	switch {
	case err == nil && model.FellBack:
		return model, fmt.Sprintf("%s could not be computed; rank regression (SRM) estimate reported", method), nil
	case err == nil:
		return model, "", nil
	case core.IsEstimationError(err):
		return model, err.Error(), nil
	default:
		return model, "", errors.WithCode(errors.CodeInvalidInput, err)
	}
}

// Fit estimates parameters for a sample and stores the analysis. Estimation
// failures are stored with a warning and empty parameters rather than rejected.
func (s *AnalysisService) Fit(ctx context.Context, req FitRequest) (*lifedata.Analysis, error) {
	dist, method, err := s.resolve(req.Distribution, req.Method)
	if err != nil {
		return nil, err
	}
	sample := req.Sample
	if req.Grouped != nil {
		if sample, err = s.ExpandGrouped(*req.Grouped); err != nil {
			return nil, err
		}
	}
	if err := s.checkSample(sample); err != nil {
		return nil, err
	}

	model, warning, err := s.estimate(dist, method, sample)
	if err != nil {
		return nil, err
	}

	analysis := &lifedata.Analysis{
		ID:        core.NewAnalysisID(),
		Name:      strings.TrimSpace(req.Name),
		Sample:    sample,
		Model:     model,
		Warning:   warning,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, analysis); err != nil {
		return nil, errors.Wrap(err, "failed to store analysis")
	}
	s.logger.Info("stored analysis %s: %s/%s on %d failures, %d suspensions", analysis.ID, dist, model.Method, model.FailureCount, model.SuspensionCount)
	if warning != "" {
		s.logger.Warn("analysis %s: %s", analysis.ID, warning)
	}
	return analysis, nil
}

// Refit re-estimates a stored analysis with a new family or method and clears its overrides
func (s *AnalysisService) Refit(ctx context.Context, id core.AnalysisID, spec ModelSpec) (*lifedata.Analysis, error) {
	analysis, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dist := spec.Distribution
	if dist == "" {
		dist = string(analysis.Model.Distribution)
	}
	method := spec.Method
	if method == "" {
		method = string(analysis.Model.RequestedMethod)
	}
	d, m, err := s.resolve(dist, method)
	if err != nil {
		return nil, err
	}

	model, warning, err := s.estimate(d, m, analysis.Sample)
	if err != nil {
		return nil, err
	}
	analysis.Model = model
	analysis.Warning = warning
	analysis.Overrides = nil
	if err := s.repo.Save(ctx, analysis); err != nil {
		return nil, errors.Wrap(err, "failed to store analysis")
	}
	return analysis, nil
}

// FitModels fits several family/method pairs to one sample concurrently.
// Results are returned in the order of specs and are not stored.
func (s *AnalysisService) FitModels(ctx context.Context, sample lifedata.Sample, specs []ModelSpec) ([]ModelResult, error) {
	if len(specs) == 0 {
		return nil, errors.InvalidInput("at least one model is required")
	}
	if err := s.checkSample(sample); err != nil {
		return nil, err
	}

	type resolved struct {
		dist   lifedata.Distribution
		method lifedata.Method
	}
	plan := make([]resolved, len(specs))
	for i, spec := range specs {
		d, m, err := s.resolve(spec.Distribution, spec.Method)
		if err != nil {
			return nil, errors.Wrapf(err, "model %d", i+1)
		}
		plan[i] = resolved{d, m}
	}

	results := make([]ModelResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range plan {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			model, warning, err := s.estimate(p.dist, p.method, sample)
			if err != nil {
				return err
			}
			results[i] = ModelResult{Model: model, Warning: warning}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Compare ranks every family against the sample
func (s *AnalysisService) Compare(ctx context.Context, sample lifedata.Sample) (lifedata.BestFitResult, error) {
	if err := s.checkSample(sample); err != nil {
		return lifedata.BestFitResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return lifedata.BestFitResult{}, err
	}
	return s.engine.FindBestDistribution(sample.Failures, sample.Suspensions), nil
}

// Curves evaluates the given models on a shared time grid
func (s *AnalysisService) Curves(ctx context.Context, inputs []lifedata.CurveInput) (lifedata.CurveSeries, error) {
	if err := ctx.Err(); err != nil {
		return lifedata.CurveSeries{}, err
	}
	return s.engine.CalculateReliabilityData(inputs), nil
}

// CurvesForAnalyses loads stored analyses and evaluates them together
func (s *AnalysisService) CurvesForAnalyses(ctx context.Context, ids []core.AnalysisID) (lifedata.CurveSeries, []*lifedata.Analysis, error) {
	analyses := make([]*lifedata.Analysis, 0, len(ids))
	inputs := make([]lifedata.CurveInput, 0, len(ids))
	for _, id := range ids {
		a, err := s.repo.Get(ctx, id)
		if err != nil {
			return lifedata.CurveSeries{}, nil, err
		}
		analyses = append(analyses, a)
		inputs = append(inputs, a.CurveInput())
	}
	series, err := s.Curves(ctx, inputs)
	return series, analyses, err
}

// Bounds computes Weibull confidence bounds; a zero level uses the configured default
func (s *AnalysisService) Bounds(ctx context.Context, failures []float64, confidenceLevel float64) (lifedata.BoundsResult, error) {
	if err := ctx.Err(); err != nil {
		return lifedata.BoundsResult{}, err
	}
	if confidenceLevel == 0 {
		confidenceLevel = s.defaults.DefaultConfidence
	}
	result, err := s.engine.CalculateFisherConfidenceBounds(failures, confidenceLevel)
	if err != nil {
		if core.IsEstimationError(err) {
			return result, errors.InsufficientData("cannot compute confidence bounds", err)
		}
		return result, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return result, nil
}

// BoundsForAnalysis computes bounds on a stored analysis' failures
func (s *AnalysisService) BoundsForAnalysis(ctx context.Context, id core.AnalysisID, confidenceLevel float64) (lifedata.BoundsResult, error) {
	analysis, err := s.repo.Get(ctx, id)
	if err != nil {
		return lifedata.BoundsResult{}, err
	}
	return s.Bounds(ctx, analysis.Sample.Failures, confidenceLevel)
}

func (s *AnalysisService) Get(ctx context.Context, id core.AnalysisID) (*lifedata.Analysis, error) {
	return s.repo.Get(ctx, id)
}

func (s *AnalysisService) List(ctx context.Context, limit, offset int) ([]*lifedata.Analysis, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *AnalysisService) Delete(ctx context.Context, id core.AnalysisID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted analysis %s", id)
	return nil
}

// Override stores manual parameters for an analysis. The values must form a
// complete, valid parameter set for the analysis' family; an empty map clears them.
func (s *AnalysisService) Override(ctx context.Context, id core.AnalysisID, values map[string]float64) (*lifedata.Analysis, error) {
	analysis, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		params, err := lifedata.ParametersFromValues(analysis.Model.Distribution, values)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		if !params.Valid() {
			return nil, errors.InvalidInput(fmt.Sprintf("invalid %s parameters %v", analysis.Model.Distribution, values))
		}
		values = params.Values()
	}
	if err := s.repo.SaveOverrides(ctx, id, values); err != nil {
		return nil, err
	}
	analysis.Overrides = values
	if len(values) == 0 {
		analysis.Overrides = nil
	}
	return analysis, nil
}

// Summarize asks the configured summarizer for a narrative of a stored analysis
func (s *AnalysisService) Summarize(ctx context.Context, id core.AnalysisID) (string, error) {
	if s.summarizer == nil {
		return "", errors.NotConfigured("narrative summaries")
	}
	analysis, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	params := analysis.Parameters()
	if params == nil || !params.Valid() {
		return "", errors.InsufficientData("analysis has no fitted parameters", core.ErrInvalidParameters)
	}

	text, err := s.summarizer.Summarize(ctx, summaryRequest(analysis, params))
	if err != nil {
		return "", errors.ExternalServiceError("summarizer", err)
	}
	return text, nil
}

func summaryRequest(a *lifedata.Analysis, params lifedata.Parameters) ports.SummaryRequest {
	req := ports.SummaryRequest{
		Name:            a.Name,
		Distribution:    a.Model.Distribution,
		Method:          a.Model.Method,
		Parameters:      params.Values(),
		RSquared:        a.Model.RSquared(),
		LogLikelihood:   a.Model.LogLikelihood,
		FailureCount:    len(a.Sample.Failures),
		SuspensionCount: len(a.Sample.Suspensions),
	}
	if a.Overridden() {
		req.RSquared, req.LogLikelihood = math.NaN(), math.NaN()
	}
	if w, ok := params.(lifedata.WeibullParams); ok {
		req.BLives = map[string]float64{"B10": w.BLife(0.10), "B50": w.BLife(0.50)}
	}
	return req
}
