package reliability

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Abramowitz & Stegun 26.2.23 coefficients
const (
	asC0 = 2.515517
	asC1 = 0.802853
	asC2 = 0.010328
	asD1 = 1.432788
	asD2 = 0.189269
	asD3 = 0.001308
)

// InvErf returns the inverse error function for x in (-1, 1), ±Inf at ±1 and NaN outside.
func InvErf(x float64) float64 {
	return math.Erfinv(x)
}

// Erf is the error function.
func Erf(x float64) float64 {
	return math.Erf(x)
}

// InvNormalCDF returns z with Φ(z) = p using the A&S 26.2.23 rational
// approximation (|error| < 4.5e-4). It returns -Inf for p <= 0 and +Inf for p >= 1.
func InvNormalCDF(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return math.NaN()
	case p <= 0:
		return math.Inf(-1)
	case p >= 1:
		return math.Inf(1)
	}

	q := p
	if p > 0.5 {
		q = 1 - p
	}
	t := math.Sqrt(-2 * math.Log(q))
	z := t - (asC0+asC1*t+asC2*t*t)/(1+asD1*t+asD2*t*t+asD3*t*t*t)
	if p < 0.5 {
		return -z
	}
	return z
}

// NormalCDF is Φ((x-mean)/stdDev). A non-positive stdDev degenerates to a
// Heaviside step at the mean.
func NormalCDF(x, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		if x < mean {
			return 0
		}
		return 1
	}
	return distuv.Normal{Mu: mean, Sigma: stdDev}.CDF(x)
}

// NormalPDF is the normal density. A non-positive stdDev degenerates to a
// delta at the mean: +Inf there, 0 elsewhere.
func NormalPDF(x, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		if x == mean {
			return math.Inf(1)
		}
		return 0
	}
	return distuv.Normal{Mu: mean, Sigma: stdDev}.Prob(x)
}
