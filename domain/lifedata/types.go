package lifedata

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"relialab/domain/core"
)

// ============================================================================
// ENUMERATIONS
// ============================================================================

// Distribution is a lifetime distribution family
type Distribution string

const (
	Weibull     Distribution = "weibull"
	Normal      Distribution = "normal"
	Lognormal   Distribution = "lognormal"
	Exponential Distribution = "exponential"
	Loglogistic Distribution = "loglogistic"
	Gumbel      Distribution = "gumbel"
)

// AllDistributions lists every supported family in canonical order
var AllDistributions = []Distribution{Weibull, Normal, Lognormal, Exponential, Loglogistic, Gumbel}

// ParseDistribution parses a family name, case-insensitively
func ParseDistribution(s string) (Distribution, error) {
	d := Distribution(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllDistributions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownDistribution, s)
}

// Method is a parameter estimation method
type Method string

const (
	// MethodSRM is rank regression with Y regressed on X
	MethodSRM Method = "SRM"
	// MethodRRX is rank regression with X regressed on Y
	MethodRRX Method = "RRX"
	// MethodMLE is maximum likelihood
	MethodMLE Method = "MLE"
)

// ParseMethod parses an estimation method name, case-insensitively
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodSRM, MethodRRX, MethodMLE:
		return m, nil
	case "RRY":
		return MethodSRM, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownMethod, s)
}

// ============================================================================
// OBSERVATIONS
// ============================================================================

// Sample is a set of right-censored life observations
type Sample struct {
	Failures    []float64 `json:"failures"`    // Times at which the event was observed
	Suspensions []float64 `json:"suspensions"` // Times at which units were still running
}

// Validate checks that every time is finite and positive
func (s Sample) Validate() error {
	for i, t := range s.Failures {
		if !(t > 0) || math.IsInf(t, 0) {
			return core.NewValidationError(fmt.Sprintf("failures[%d]", i), fmt.Sprintf("time must be positive and finite, got %v", t))
		}
	}
	for i, t := range s.Suspensions {
		if !(t > 0) || math.IsInf(t, 0) {
			return core.NewValidationError(fmt.Sprintf("suspensions[%d]", i), fmt.Sprintf("time must be positive and finite, got %v", t))
		}
	}
	return nil
}

// MaxTime returns the largest observed time, suspensions included
func (s Sample) MaxTime() float64 {
	maxT := 0.0
	for _, t := range s.Failures {
		maxT = math.Max(maxT, t)
	}
	for _, t := range s.Suspensions {
		maxT = math.Max(maxT, t)
	}
	return maxT
}

// All returns failures followed by suspensions
func (s Sample) All() []float64 {
	all := make([]float64, 0, len(s.Failures)+len(s.Suspensions))
	all = append(all, s.Failures...)
	return append(all, s.Suspensions...)
}

// Group is a time value observed Quantity times
type Group struct {
	Time     float64 `json:"time"`
	Quantity int     `json:"qty"`
}

// GroupedSample is a Sample given as grouped counts
type GroupedSample struct {
	Failures    []Group `json:"failures"`
	Suspensions []Group `json:"suspensions"`
}

// Count is the number of observations Expand would produce, saturating at
// math.MaxInt instead of overflowing.
func (g GroupedSample) Count() int {
	total := 0
	for _, groups := range [][]Group{g.Failures, g.Suspensions} {
		for _, grp := range groups {
			if grp.Quantity <= 0 {
				continue
			}
			if grp.Quantity > math.MaxInt-total {
				return math.MaxInt
			}
			total += grp.Quantity
		}
	}
	return total
}

// Expand flattens grouped counts into repeated time values, preserving order
func (g GroupedSample) Expand() Sample {
	return Sample{
		Failures:    ExpandGroups(g.Failures),
		Suspensions: ExpandGroups(g.Suspensions),
	}
}

// ExpandGroups repeats each group's time Quantity times. Non-positive quantities contribute nothing.
func ExpandGroups(groups []Group) []float64 {
	out := []float64{}
	for _, g := range groups {
		for i := 0; i < g.Quantity; i++ {
			out = append(out, g.Time)
		}
	}
	return out
}

// ============================================================================
// ESTIMATION OUTPUTS
// ============================================================================

// RankedPoint is a failure time with its median-rank probability
type RankedPoint struct {
	Time float64 `json:"time"`
	Prob float64 `json:"prob"`
}

// XY is a point in linearized probability-plot coordinates
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlotData is the probability-plot view of a rank regression
type PlotData struct {
	Points    []XY    `json:"points"`
	Line      [2]XY   `json:"line"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"rSquared"`
	Angle     float64 `json:"angle"` // atan(slope) in degrees, display only
}

// FittedModel is the immutable result of one estimation call
type FittedModel struct {
	Distribution    Distribution
	Method          Method // method that produced Parameters
	RequestedMethod Method // method the caller asked for
	FellBack        bool   // MLE was abandoned for rank regression
	Parameters      Parameters
	LogLikelihood   float64
	Plot            *PlotData
	FailureCount    int
	SuspensionCount int
	MaxTime         float64
}

// RSquared returns the rank-regression R² attached to the model, or NaN
func (m FittedModel) RSquared() float64 {
	if m.Plot == nil {
		return math.NaN()
	}
	return m.Plot.RSquared
}

// HasParameters reports whether the model carries a usable parameter vector
func (m FittedModel) HasParameters() bool {
	return m.Parameters != nil && m.Parameters.Valid()
}

type fittedModelJSON struct {
	Distribution    Distribution       `json:"distribution"`
	Method          Method             `json:"method"`
	RequestedMethod Method             `json:"requestedMethod"`
	FellBack        bool               `json:"fellBack"`
	Parameters      map[string]float64 `json:"parameters"`
	RSquared        *float64           `json:"rSquared"`
	LogLikelihood   *float64           `json:"logLikelihood"`
	Plot            *PlotData          `json:"plotData,omitempty"`
	FailureCount    int                `json:"failureCount"`
	SuspensionCount int                `json:"suspensionCount"`
	MaxTime         float64            `json:"maxTime"`
}

// MarshalJSON renders parameters as a flat name→value object; undefined parameters render as {}
func (m FittedModel) MarshalJSON() ([]byte, error) {
	out := fittedModelJSON{
		Distribution:    m.Distribution,
		Method:          m.Method,
		RequestedMethod: m.RequestedMethod,
		FellBack:        m.FellBack,
		Parameters:      finiteValues(m.Parameters),
		RSquared:        finiteOrNil(m.RSquared()),
		LogLikelihood:   finiteOrNil(m.LogLikelihood),
		Plot:            m.Plot,
		FailureCount:    m.FailureCount,
		SuspensionCount: m.SuspensionCount,
		MaxTime:         m.MaxTime,
	}
	return json.Marshal(out)
}

// finiteValues is the flat parameter map with NaN and ±Inf entries dropped
func finiteValues(p Parameters) map[string]float64 {
	out := map[string]float64{}
	if p == nil {
		return out
	}
	for k, v := range p.Values() {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// UnmarshalJSON restores a model written by MarshalJSON
func (m *FittedModel) UnmarshalJSON(data []byte) error {
	var in fittedModelJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = FittedModel{
		Distribution:    in.Distribution,
		Method:          in.Method,
		RequestedMethod: in.RequestedMethod,
		FellBack:        in.FellBack,
		Plot:            in.Plot,
		FailureCount:    in.FailureCount,
		SuspensionCount: in.SuspensionCount,
		MaxTime:         in.MaxTime,
		LogLikelihood:   math.NaN(),
	}
	if in.LogLikelihood != nil {
		m.LogLikelihood = *in.LogLikelihood
	}
	if len(in.Parameters) > 0 {
		params, err := ParametersFromValues(in.Distribution, in.Parameters)
		if err != nil {
			return err
		}
		m.Parameters = params
	}
	return nil
}

// ============================================================================
// RELIABILITY CURVES
// ============================================================================

// CurveInput is one named model to evaluate on the shared time grid
type CurveInput struct {
	Name       string
	Parameters Parameters // nil or invalid parameters yield null values
	MaxTime    float64    // largest observed time for this model, suspensions included
}

// CurveRow is one grid time with a value per model; nil means undefined at that time
type CurveRow struct {
	Time   float64
	Values map[string]*float64
}

// MarshalJSON flattens the row to {"time": t, "<model>": value|null, ...}
func (r CurveRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Values)+1)
	for name, v := range r.Values {
		if v == nil {
			flat[name] = nil
		} else {
			flat[name] = *v
		}
	}
	flat["time"] = r.Time
	return json.Marshal(flat)
}

// ModelNames returns the model names present in the row, sorted
func (r CurveRow) ModelNames() []string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurveSeries holds the four parallel time series produced by the evaluator
type CurveSeries struct {
	Reliability   []CurveRow `json:"Rt"`
	Unreliability []CurveRow `json:"Ft"`
	Density       []CurveRow `json:"ft"`
	Hazard        []CurveRow `json:"lambda_t"`
}

// ============================================================================
// CONFIDENCE BOUNDS & MODEL COMPARISON
// ============================================================================

// BoundPoint is a point in Weibull probability-plot coordinates
type BoundPoint struct {
	X    float64 `json:"x"`    // ln(t)
	Time float64 `json:"time"` // t
	Y    float64 `json:"y"`    // linearized unreliability ln(-ln R)
}

// BoundsResult is a Fisher-matrix confidence band around a Weibull line
type BoundsResult struct {
	Lower           []BoundPoint `json:"lower"`
	Upper           []BoundPoint `json:"upper"`
	Line            []BoundPoint `json:"line"`
	Beta            float64      `json:"beta"`
	Eta             float64      `json:"eta"`
	ConfidenceLevel float64      `json:"confidenceLevel"` // fraction in (0,1)
}

// DistributionFit is one family's entry in a best-fit comparison
type DistributionFit struct {
	Distribution  Distribution
	Parameters    Parameters
	LogLikelihood float64
	RSquared      float64
	Err           error // estimation outcome when no parameters were produced
}

// MarshalJSON renders the fit with flat parameters and null for undefined scores
func (f DistributionFit) MarshalJSON() ([]byte, error) {
	out := struct {
		Distribution  Distribution       `json:"distribution"`
		Parameters    map[string]float64 `json:"parameters"`
		LogLikelihood *float64           `json:"logLikelihood"`
		RSquared      *float64           `json:"rSquared"`
		Error         string             `json:"error,omitempty"`
	}{
		Distribution:  f.Distribution,
		Parameters:    finiteValues(f.Parameters),
		LogLikelihood: finiteOrNil(f.LogLikelihood),
		RSquared:      finiteOrNil(f.RSquared),
	}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// BestFitResult ranks all families against one dataset
type BestFitResult struct {
	Results []DistributionFit `json:"results"`
	Best    Distribution      `json:"best"` // empty when no family could be fit
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
