package reliability

import (
	"errors"
	"math"
	"testing"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/internal"
	"relialab/internal/testkit"
)

func newTestEngine() *Engine {
	return NewEngine(internal.NewLogger(internal.LogLevelError))
}

func TestEstimateParametersDispatch(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		method   lifedata.Method
		wantBeta float64
		wantEta  float64
	}{
		{lifedata.MethodSRM, 0.9701815, 1029.8806},
		{lifedata.MethodRRX, 1.1908927, 929.88912},
		{lifedata.MethodMLE, 0.8997464, 1023.5772},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			model, err := engine.EstimateParameters(lifedata.Weibull, fixtureFailures, nil, tt.method)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if model.Method != tt.method || model.FellBack {
				t.Errorf("method = %s fellBack = %v, want %s without fallback", model.Method, model.FellBack, tt.method)
			}
			w := model.Parameters.(lifedata.WeibullParams)
			if !near(w.Beta, tt.wantBeta, 1e-5) || !near(w.Eta, tt.wantEta, 1e-5) {
				t.Errorf("got beta=%v eta=%v, want %v %v", w.Beta, w.Eta, tt.wantBeta, tt.wantEta)
			}
			if model.Plot == nil {
				t.Fatalf("expected probability plot")
			}
			if math.IsInf(model.LogLikelihood, 0) || math.IsNaN(model.LogLikelihood) {
				t.Errorf("log-likelihood %v, want finite", model.LogLikelihood)
			}
			if model.FailureCount != len(fixtureFailures) || model.MaxTime != 5042 {
				t.Errorf("counts %d max %v", model.FailureCount, model.MaxTime)
			}
		})
	}
}

func TestEstimateParametersMLEFallbackMatchesSRM(t *testing.T) {
	engine := newTestEngine()

	mle, err := engine.EstimateParameters(lifedata.Weibull, adversarialFailures, adversarialSuspensions, lifedata.MethodMLE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srm, err := engine.EstimateParameters(lifedata.Weibull, adversarialFailures, adversarialSuspensions, lifedata.MethodSRM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !mle.FellBack || mle.Method != lifedata.MethodSRM || mle.RequestedMethod != lifedata.MethodMLE {
		t.Errorf("expected SRM fallback for an MLE request, got method=%s requested=%s fellBack=%v", mle.Method, mle.RequestedMethod, mle.FellBack)
	}
	got := mle.Parameters.(lifedata.WeibullParams)
	want := srm.Parameters.(lifedata.WeibullParams)
	if got != want {
		t.Errorf("fallback parameters %+v differ from direct SRM %+v", got, want)
	}
}

func TestEstimateParametersMLEFamiliesWithoutEstimatorFallBack(t *testing.T) {
	engine := newTestEngine()
	for _, dist := range []lifedata.Distribution{lifedata.Loglogistic, lifedata.Gumbel} {
		model, err := engine.EstimateParameters(dist, fixtureFailures, nil, lifedata.MethodMLE)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", dist, err)
		}
		if !model.FellBack || model.Method != lifedata.MethodSRM {
			t.Errorf("%s: expected SRM fallback, got %s", dist, model.Method)
		}
	}
}

func TestEstimateParametersMLEClosedForms(t *testing.T) {
	engine := newTestEngine()
	model, err := engine.EstimateParameters(lifedata.Exponential, []float64{100, 300}, []float64{400}, lifedata.MethodMLE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.FellBack {
		t.Errorf("exponential has a closed form, did not expect fallback")
	}
	if got := model.Parameters.(lifedata.ExponentialParams).Lambda; math.Abs(got-3.0/800) > 1e-15 {
		t.Errorf("lambda = %v, want %v", got, 3.0/800)
	}
}

func TestEstimateParametersErrors(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name        string
		dist        lifedata.Distribution
		method      lifedata.Method
		failures    []float64
		suspensions []float64
		want        error
	}{
		{"no failures", lifedata.Weibull, lifedata.MethodSRM, nil, []float64{10}, core.ErrInsufficientData},
		{"single failure", lifedata.Weibull, lifedata.MethodSRM, []float64{10}, nil, core.ErrInsufficientData},
		{"unknown family", lifedata.Distribution("cauchy"), lifedata.MethodSRM, fixtureFailures, nil, core.ErrUnknownDistribution},
		{"unknown method", lifedata.Weibull, lifedata.Method("LSQ"), fixtureFailures, nil, core.ErrUnknownMethod},
		{"negative time", lifedata.Weibull, lifedata.MethodSRM, []float64{10, -1}, nil, core.ErrInvalidObservation},
		{"NaN suspension", lifedata.Weibull, lifedata.MethodSRM, fixtureFailures, []float64{math.NaN()}, core.ErrInvalidObservation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := engine.EstimateParameters(tt.dist, tt.failures, tt.suspensions, tt.method)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if model.HasParameters() {
				t.Errorf("expected no parameters on error, got %v", model.Parameters.Values())
			}
		})
	}
}

func TestEstimateGroupedMatchesExpanded(t *testing.T) {
	engine := newTestEngine()
	grouped := lifedata.GroupedSample{
		Failures: []lifedata.Group{{Time: 150, Quantity: 2}, {Time: 210, Quantity: 5}, {Time: 300, Quantity: 1}},
	}

	fromGroups, err := engine.EstimateGrouped(lifedata.Weibull, grouped, lifedata.MethodSRM)
	if err != nil {
		t.Fatalf("grouped: %v", err)
	}
	expanded := []float64{150, 150, 210, 210, 210, 210, 210, 300}
	direct, err := engine.EstimateParameters(lifedata.Weibull, expanded, nil, lifedata.MethodSRM)
	if err != nil {
		t.Fatalf("expanded: %v", err)
	}
	if fromGroups.Parameters != direct.Parameters {
		t.Errorf("grouped %+v differs from expanded %+v", fromGroups.Parameters, direct.Parameters)
	}
	if fromGroups.RSquared() != direct.RSquared() {
		t.Errorf("grouped R² %v differs from expanded %v", fromGroups.RSquared(), direct.RSquared())
	}
}

func TestEstimateParametersRoundTrip(t *testing.T) {
	engine := newTestEngine()
	cfg := testkit.LifeDataConfig{
		Units: 1000,
		Seed:  2024,
		Truth: lifedata.WeibullParams{Beta: 1.8, Eta: 1000},
	}
	sample, err := testkit.GenerateLifeData(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	model, err := engine.EstimateParameters(lifedata.Weibull, sample.Failures, sample.Suspensions, lifedata.MethodSRM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := model.Parameters.(lifedata.WeibullParams)
	if !near(w.Beta, 1.8, 0.1) {
		t.Errorf("beta = %v, want within 10%% of 1.8", w.Beta)
	}
	if !near(w.Eta, 1000, 0.1) {
		t.Errorf("eta = %v, want within 10%% of 1000", w.Eta)
	}
}
