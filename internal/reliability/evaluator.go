package reliability

import (
	"fmt"
	"math"

	"relialab/domain/lifedata"
)

const (
	// GridPoints is the number of evaluation times shared by every curve
	GridPoints = 101
	// gridHeadroom extends the grid past the largest observed time
	gridHeadroom = 1.2
	// zeroTime stands in for t = 0 where R, f or λ are singular
	zeroTime = 1e-9
)

// TimeGrid returns GridPoints evenly spaced times from 0 to 1.2·maxTime.
func TimeGrid(maxTime float64) []float64 {
	if !(maxTime > 0) || math.IsInf(maxTime, 0) {
		return []float64{}
	}
	end := gridHeadroom * maxTime
	grid := make([]float64, GridPoints)
	for i := range grid {
		grid[i] = end * float64(i) / float64(GridPoints-1)
	}
	return grid
}

// CalculateReliabilityData evaluates R(t), F(t), f(t) and λ(t) for every
// input on one shared grid. Inputs with missing or invalid parameters, and
// individual non-finite values, appear as nil so rows stay aligned across
// models. At t = 0 the functions are evaluated at 1e-9 but R and F are
// reported as exactly 1 and 0.
func (e *Engine) CalculateReliabilityData(inputs []lifedata.CurveInput) lifedata.CurveSeries {
	maxTime := 0.0
	for _, in := range inputs {
		if isFinite(in.MaxTime) {
			maxTime = math.Max(maxTime, in.MaxTime)
		}
	}
	grid := TimeGrid(maxTime)

	series := lifedata.CurveSeries{
		Reliability:   make([]lifedata.CurveRow, len(grid)),
		Unreliability: make([]lifedata.CurveRow, len(grid)),
		Density:       make([]lifedata.CurveRow, len(grid)),
		Hazard:        make([]lifedata.CurveRow, len(grid)),
	}

	names := curveNames(inputs)
	for i, t := range grid {
		rt := lifedata.CurveRow{Time: t, Values: make(map[string]*float64, len(inputs))}
		ft := lifedata.CurveRow{Time: t, Values: make(map[string]*float64, len(inputs))}
		pdf := lifedata.CurveRow{Time: t, Values: make(map[string]*float64, len(inputs))}
		haz := lifedata.CurveRow{Time: t, Values: make(map[string]*float64, len(inputs))}

		for j, in := range inputs {
			name := names[j]
			if in.Parameters == nil || !in.Parameters.Valid() {
				rt.Values[name], ft.Values[name], pdf.Values[name], haz.Values[name] = nil, nil, nil, nil
				continue
			}

			at := t
			if t == 0 {
				at = zeroTime
			}
			r := in.Parameters.Reliability(at)
			f := 1 - r
			if t == 0 {
				r, f = 1, 0
			}
			rt.Values[name] = finitePtr(r)
			ft.Values[name] = finitePtr(f)
			pdf.Values[name] = finitePtr(in.Parameters.PDF(at))
			haz.Values[name] = finitePtr(in.Parameters.Hazard(at))
		}

		series.Reliability[i] = rt
		series.Unreliability[i] = ft
		series.Density[i] = pdf
		series.Hazard[i] = haz
	}
	return series
}

// curveNames gives every input a distinct column name
func curveNames(inputs []lifedata.CurveInput) []string {
	names := make([]string, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, in := range inputs {
		name := in.Name
		if name == "" && in.Parameters != nil {
			name = string(in.Parameters.Distribution())
		}
		if name == "" {
			name = fmt.Sprintf("model-%d", i+1)
		}
		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s-%d", name, seen[name])
		}
		names[i] = name
	}
	return names
}

func finitePtr(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}
