package reliability

import (
	"fmt"
	"math"

	"relialab/domain/core"
	"relialab/domain/lifedata"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// degenerateVariance is the regressor variance below which a fit is refused
const degenerateVariance = 1e-12

// Regression is an ordinary least-squares line y = Intercept + Slope·x
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// linearize maps a (time, probability) pair onto the family's probability-plot axes
func linearize(dist lifedata.Distribution, t, f float64) (x, y float64) {
	switch dist {
	case lifedata.Weibull:
		return math.Log(t), math.Log(math.Log(1 / (1 - f)))
	case lifedata.Lognormal:
		return math.Log(t), InvNormalCDF(f)
	case lifedata.Normal:
		return t, InvNormalCDF(f)
	case lifedata.Exponential:
		return t, math.Log(1 / (1 - f))
	case lifedata.Loglogistic:
		return math.Log(t), math.Log(f / (1 - f))
	case lifedata.Gumbel:
		return t, -math.Log(-math.Log(f))
	}
	return math.NaN(), math.NaN()
}

// Linearize transforms ranked points into probability-plot coordinates,
// discarding any pair that is not finite on both axes.
func Linearize(dist lifedata.Distribution, points []lifedata.RankedPoint) (xs, ys []float64) {
	xs = make([]float64, 0, len(points))
	ys = make([]float64, 0, len(points))
	for _, p := range points {
		x, y := linearize(dist, p.Time, p.Prob)
		if isFinite(x) && isFinite(y) {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// FitLine regresses y on x (SRM) or x on y inverted back to y-on-x form (RRX).
func FitLine(xs, ys []float64, method lifedata.Method) (Regression, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return Regression{}, fmt.Errorf("%w: %d usable points, need at least 2", core.ErrInsufficientData, len(xs))
	}

	switch method {
	case lifedata.MethodRRX:
		if stat.Variance(ys, nil) < degenerateVariance {
			return Regression{}, fmt.Errorf("%w: y is constant", core.ErrDegenerateRegression)
		}
		alpha, beta := stat.LinearRegression(ys, xs, nil, false)
		if math.Abs(beta) < degenerateVariance {
			return Regression{}, fmt.Errorf("%w: x is constant", core.ErrDegenerateRegression)
		}
		return Regression{
			Slope:     1 / beta,
			Intercept: -alpha / beta,
			RSquared:  clampRSquared(stat.RSquared(ys, xs, nil, alpha, beta)),
		}, nil
	default:
		if stat.Variance(xs, nil) < degenerateVariance {
			return Regression{}, fmt.Errorf("%w: x is constant", core.ErrDegenerateRegression)
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		return Regression{
			Slope:     beta,
			Intercept: alpha,
			RSquared:  clampRSquared(stat.RSquared(xs, ys, nil, alpha, beta)),
		}, nil
	}
}

// clampRSquared maps the undefined case (constant response) to 0 and guards rounding outside [0,1]
func clampRSquared(r2 float64) float64 {
	if math.IsNaN(r2) {
		return 0
	}
	return math.Max(0, math.Min(1, r2))
}

// parametersFromLine back-transforms a probability-plot line into family parameters
func parametersFromLine(dist lifedata.Distribution, reg Regression) lifedata.Parameters {
	a, b := reg.Intercept, reg.Slope
	switch dist {
	case lifedata.Weibull:
		return lifedata.WeibullParams{Beta: b, Eta: math.Exp(-a / b)}
	case lifedata.Lognormal:
		return lifedata.LognormalParams{LogMean: -a / b, LogStdDev: 1 / b}
	case lifedata.Normal:
		return lifedata.NormalParams{Mean: -a / b, StdDev: 1 / b}
	case lifedata.Exponential:
		return lifedata.ExponentialParams{Lambda: b}
	case lifedata.Loglogistic:
		return lifedata.LoglogisticParams{Alpha: math.Exp(-a / b), Beta: b}
	case lifedata.Gumbel:
		return lifedata.GumbelParams{Mu: -a / b, Sigma: 1 / b}
	}
	return nil
}

// plotData builds the probability-plot view for a fitted line over the observed x range
func plotData(xs, ys []float64, reg Regression) *lifedata.PlotData {
	points := make([]lifedata.XY, len(xs))
	for i := range xs {
		points[i] = lifedata.XY{X: xs[i], Y: ys[i]}
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	return &lifedata.PlotData{
		Points: points,
		Line: [2]lifedata.XY{
			{X: lo, Y: reg.Intercept + reg.Slope*lo},
			{X: hi, Y: reg.Intercept + reg.Slope*hi},
		},
		Slope:     reg.Slope,
		Intercept: reg.Intercept,
		RSquared:  reg.RSquared,
		Angle:     math.Atan(reg.Slope) * 180 / math.Pi,
	}
}

// RankRegression estimates family parameters by linear regression on the
// linearized median ranks of the sample.
func RankRegression(dist lifedata.Distribution, failures, suspensions []float64, method lifedata.Method) (lifedata.Parameters, *lifedata.PlotData, error) {
	if len(failures) == 0 {
		return nil, nil, fmt.Errorf("%w: no failures", core.ErrInsufficientData)
	}
	xs, ys := Linearize(dist, AdjustedRanks(failures, suspensions))
	reg, err := FitLine(xs, ys, method)
	if err != nil {
		return nil, nil, err
	}
	return parametersFromLine(dist, reg), plotData(xs, ys, reg), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
