package lifedata

import (
	"time"

	"relialab/domain/core"
)

// Analysis is a stored estimation: the sample it was fit on, the engine's
// result, and any manual parameter overrides set since the fit.
type Analysis struct {
	ID        core.AnalysisID    `json:"id"`
	Name      string             `json:"name"`
	Sample    Sample             `json:"sample"`
	Model     FittedModel        `json:"model"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
	Warning   string             `json:"warning,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Parameters returns the override parameters when they form a valid set for
// the model's family, otherwise the fitted parameters (possibly nil).
func (a Analysis) Parameters() Parameters {
	if len(a.Overrides) > 0 {
		if p, err := ParametersFromValues(a.Model.Distribution, a.Overrides); err == nil && p.Valid() {
			return p
		}
	}
	return a.Model.Parameters
}

// Overridden reports whether the displayed parameters come from overrides
func (a Analysis) Overridden() bool {
	if len(a.Overrides) == 0 {
		return false
	}
	p, err := ParametersFromValues(a.Model.Distribution, a.Overrides)
	return err == nil && p.Valid()
}

// CurveInput builds the evaluator input for this analysis
func (a Analysis) CurveInput() CurveInput {
	name := a.Name
	if name == "" {
		name = string(a.Model.Distribution)
	}
	return CurveInput{Name: name, Parameters: a.Parameters(), MaxTime: a.Sample.MaxTime()}
}
