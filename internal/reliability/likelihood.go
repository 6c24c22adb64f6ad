package reliability

import (
	"math"

	"relialab/domain/lifedata"
)

// LogLikelihood scores a model against right-censored data: Σ ln f(tᵢ) over
// failures plus Σ ln R(tⱼ) over suspensions. Invalid parameters or any
// zero-probability observation give -Inf.
func LogLikelihood(params lifedata.Parameters, failures, suspensions []float64) float64 {
	if params == nil || !params.Valid() {
		return math.Inf(-1)
	}
	ll := 0.0
	for _, t := range failures {
		ll += math.Log(params.PDF(t))
	}
	for _, t := range suspensions {
		ll += math.Log(params.Reliability(t))
	}
	if math.IsNaN(ll) {
		return math.Inf(-1)
	}
	return ll
}
