package lifedata

import (
	"fmt"
	"math"

	"relialab/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// HazardFloor bounds R(t) away from zero in the hazard denominator
const HazardFloor = 1e-9

// Parameters is the per-family parameter vector of a lifetime model.
// Each family has its own concrete type carrying exactly its parameters.
type Parameters interface {
	Distribution() Distribution
	// Valid reports whether every parameter is finite and inside its domain
	Valid() bool
	// Values returns the parameters by name, for transport and display
	Values() map[string]float64
	Reliability(t float64) float64
	PDF(t float64) float64
	Hazard(t float64) float64
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func hazard(pdf, reliability float64) float64 {
	return pdf / math.Max(reliability, HazardFloor)
}

// WeibullParams is a two-parameter Weibull model
type WeibullParams struct {
	Beta float64 // shape
	Eta  float64 // scale (characteristic life)
}

func (p WeibullParams) Distribution() Distribution { return Weibull }
func (p WeibullParams) Valid() bool                { return positive(p.Beta) && positive(p.Eta) }
func (p WeibullParams) Values() map[string]float64 {
	return map[string]float64{"beta": p.Beta, "eta": p.Eta}
}

func (p WeibullParams) dist() distuv.Weibull { return distuv.Weibull{K: p.Beta, Lambda: p.Eta} }

func (p WeibullParams) Reliability(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return p.dist().Survival(t)
}

// PDF is zero at t = 0 even for β < 1, where the density diverges
func (p WeibullParams) PDF(t float64) float64 {
	if t <= 0 {
		return 0
	}
	return p.dist().Prob(t)
}

func (p WeibullParams) Hazard(t float64) float64 { return hazard(p.PDF(t), p.Reliability(t)) }

// BLife returns the time by which the fraction q of the population has
// failed. q must lie in [0, 1].
func (p WeibullParams) BLife(q float64) float64 {
	return p.dist().Quantile(q)
}

// NormalParams is a normal lifetime model
type NormalParams struct {
	Mean   float64
	StdDev float64
}

func (p NormalParams) Distribution() Distribution { return Normal }
func (p NormalParams) Valid() bool                { return finite(p.Mean) && positive(p.StdDev) }
func (p NormalParams) Values() map[string]float64 {
	return map[string]float64{"mean": p.Mean, "stdDev": p.StdDev}
}

func (p NormalParams) dist() distuv.Normal { return distuv.Normal{Mu: p.Mean, Sigma: p.StdDev} }

func (p NormalParams) Reliability(t float64) float64 { return p.dist().Survival(t) }
func (p NormalParams) PDF(t float64) float64         { return p.dist().Prob(t) }

func (p NormalParams) Hazard(t float64) float64 { return hazard(p.PDF(t), p.Reliability(t)) }

// LognormalParams is a lognormal model parameterized on ln(t)
type LognormalParams struct {
	LogMean   float64
	LogStdDev float64
}

func (p LognormalParams) Distribution() Distribution { return Lognormal }
func (p LognormalParams) Valid() bool                { return finite(p.LogMean) && positive(p.LogStdDev) }
func (p LognormalParams) Values() map[string]float64 {
	return map[string]float64{"logMean": p.LogMean, "logStdDev": p.LogStdDev}
}

func (p LognormalParams) dist() distuv.LogNormal {
	return distuv.LogNormal{Mu: p.LogMean, Sigma: p.LogStdDev}
}

func (p LognormalParams) Reliability(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return p.dist().Survival(t)
}

func (p LognormalParams) PDF(t float64) float64 {
	if t <= 0 {
		return 0
	}
	return p.dist().Prob(t)
}

func (p LognormalParams) Hazard(t float64) float64 { return hazard(p.PDF(t), p.Reliability(t)) }

// ExponentialParams is a constant-hazard model
type ExponentialParams struct {
	Lambda float64 // failure rate
}

func (p ExponentialParams) Distribution() Distribution { return Exponential }
func (p ExponentialParams) Valid() bool                { return positive(p.Lambda) }
func (p ExponentialParams) Values() map[string]float64 {
	return map[string]float64{"lambda": p.Lambda}
}

func (p ExponentialParams) dist() distuv.Exponential { return distuv.Exponential{Rate: p.Lambda} }

func (p ExponentialParams) Reliability(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return p.dist().Survival(t)
}

func (p ExponentialParams) PDF(t float64) float64 {
	if t < 0 {
		return 0
	}
	return p.dist().Prob(t)
}

func (p ExponentialParams) Hazard(float64) float64 { return p.Lambda }

// LoglogisticParams is a log-logistic model. distuv has no log-logistic
// type, so R and f are written out.
type LoglogisticParams struct {
	Alpha float64 // scale (median life)
	Beta  float64 // shape
}

func (p LoglogisticParams) Distribution() Distribution { return Loglogistic }
func (p LoglogisticParams) Valid() bool                { return positive(p.Alpha) && positive(p.Beta) }
func (p LoglogisticParams) Values() map[string]float64 {
	return map[string]float64{"alpha": p.Alpha, "beta": p.Beta}
}

func (p LoglogisticParams) Reliability(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return 1 / (1 + math.Pow(t/p.Alpha, p.Beta))
}

func (p LoglogisticParams) PDF(t float64) float64 {
	if t <= 0 {
		return 0
	}
	z := math.Pow(t/p.Alpha, p.Beta)
	return (p.Beta / t) * z / ((1 + z) * (1 + z))
}

func (p LoglogisticParams) Hazard(t float64) float64 { return hazard(p.PDF(t), p.Reliability(t)) }

// GumbelParams is a largest-extreme-value model
type GumbelParams struct {
	Mu    float64 // location
	Sigma float64 // scale
}

func (p GumbelParams) Distribution() Distribution { return Gumbel }
func (p GumbelParams) Valid() bool                { return finite(p.Mu) && positive(p.Sigma) }
func (p GumbelParams) Values() map[string]float64 {
	return map[string]float64{"mu": p.Mu, "sigma": p.Sigma}
}

func (p GumbelParams) dist() distuv.GumbelRight { return distuv.GumbelRight{Mu: p.Mu, Beta: p.Sigma} }

func (p GumbelParams) Reliability(t float64) float64 { return p.dist().Survival(t) }
func (p GumbelParams) PDF(t float64) float64         { return p.dist().Prob(t) }

func (p GumbelParams) Hazard(t float64) float64 { return hazard(p.PDF(t), p.Reliability(t)) }

// ParametersFromValues builds the family's parameter type from a name→value map.
// Missing names become NaN, so the result reports Valid() == false instead of failing;
// only an unknown family is an error.
func ParametersFromValues(dist Distribution, values map[string]float64) (Parameters, error) {
	get := func(name string) float64 {
		if v, ok := values[name]; ok {
			return v
		}
		return math.NaN()
	}

	switch dist {
	case Weibull:
		return WeibullParams{Beta: get("beta"), Eta: get("eta")}, nil
	case Normal:
		return NormalParams{Mean: get("mean"), StdDev: get("stdDev")}, nil
	case Lognormal:
		return LognormalParams{LogMean: get("logMean"), LogStdDev: get("logStdDev")}, nil
	case Exponential:
		return ExponentialParams{Lambda: get("lambda")}, nil
	case Loglogistic:
		return LoglogisticParams{Alpha: get("alpha"), Beta: get("beta")}, nil
	case Gumbel:
		return GumbelParams{Mu: get("mu"), Sigma: get("sigma")}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownDistribution, dist)
}
