package reliability

import (
	"fmt"
	"math"

	"relialab/domain/core"
	"relialab/domain/lifedata"

	"gonum.org/v1/gonum/floats"
)

// Large-sample variance coefficients for rank-regression Weibull estimates.
// These are empirical constants, not the MLE Fisher information, and may
// differ from reference packages.
const (
	fisherBetaVar = 0.608 // Var(β) ≈ 0.608·β²/n
	fisherEtaVar  = 0.370 // Var(η) ≈ 0.370·η²/(n·β²)
	fisherCovar   = 0.255 // Cov(β,η) ≈ 0.255·β·η/n
	boundsPoints  = 100
)

// NormalizeConfidence accepts a level as a fraction (0.9) or a percentage (90)
// and returns the fraction.
func NormalizeConfidence(level float64) (float64, error) {
	if level > 1 && level < 100 {
		level /= 100
	}
	if !(level > 0 && level < 1) {
		return 0, core.NewValidationError("confidenceLevel", fmt.Sprintf("must be in (0,1) or (1,100), got %v", level))
	}
	return level, nil
}

// CalculateFisherConfidenceBounds fits a Weibull SRM line to the failures and
// returns two-sided bounds on the linearized statistic Y = β·ln t − β·ln η at
// 100 points across the observed log-time range. Points whose approximate
// variance is negative are left out of both bound curves.
func (e *Engine) CalculateFisherConfidenceBounds(failures []float64, confidenceLevel float64) (lifedata.BoundsResult, error) {
	cl, err := NormalizeConfidence(confidenceLevel)
	if err != nil {
		return lifedata.BoundsResult{}, err
	}
	result := lifedata.BoundsResult{ConfidenceLevel: cl, Lower: []lifedata.BoundPoint{}, Upper: []lifedata.BoundPoint{}, Line: []lifedata.BoundPoint{}}

	if err := (lifedata.Sample{Failures: failures}).Validate(); err != nil {
		return result, err
	}
	params, _, err := RankRegression(lifedata.Weibull, failures, nil, lifedata.MethodSRM)
	if err != nil {
		return result, err
	}
	w := params.(lifedata.WeibullParams)
	if !w.Valid() {
		return result, fmt.Errorf("%w: beta=%v eta=%v", core.ErrInvalidParameters, w.Beta, w.Eta)
	}
	result.Beta, result.Eta = w.Beta, w.Eta

	n := float64(len(failures))
	varBeta := fisherBetaVar * w.Beta * w.Beta / n
	varEta := fisherEtaVar * w.Eta * w.Eta / (n * w.Beta * w.Beta)
	covBetaEta := fisherCovar * w.Beta * w.Eta / n
	z := InvNormalCDF(1 - (1-cl)/2)

	logs := make([]float64, len(failures))
	for i, t := range failures {
		logs[i] = math.Log(t)
	}
	lo, hi := floats.Min(logs), floats.Max(logs)
	logEta := math.Log(w.Eta)

	for i := 0; i < boundsPoints; i++ {
		x := lo + (hi-lo)*float64(i)/float64(boundsPoints-1)
		y := w.Beta*x - w.Beta*logEta
		result.Line = append(result.Line, lifedata.BoundPoint{X: x, Time: math.Exp(x), Y: y})

		// Delta method: ∂Y/∂β = ln t − ln η, ∂Y/∂η = −β/η
		dBeta := x - logEta
		dEta := -w.Beta / w.Eta
		variance := dBeta*dBeta*varBeta + dEta*dEta*varEta + 2*dBeta*dEta*covBetaEta
		if variance < 0 {
			continue
		}
		spread := z * math.Sqrt(variance)
		result.Lower = append(result.Lower, lifedata.BoundPoint{X: x, Time: math.Exp(x), Y: y - spread})
		result.Upper = append(result.Upper, lifedata.BoundPoint{X: x, Time: math.Exp(x), Y: y + spread})
	}
	return result, nil
}
