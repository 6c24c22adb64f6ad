package reliability

import (
	"sort"

	"relialab/domain/lifedata"
)

type observation struct {
	time    float64
	failure bool
}

// AdjustedRanks computes Johnson adjusted ranks for right-censored data and
// converts them to Benard median-rank probabilities. Suspensions get no point
// but shift the ranks of later failures. Points with prob >= 1 are dropped.
func AdjustedRanks(failures, suspensions []float64) []lifedata.RankedPoint {
	if len(failures) == 0 {
		return []lifedata.RankedPoint{}
	}

	merged := make([]observation, 0, len(failures)+len(suspensions))
	for _, t := range failures {
		merged = append(merged, observation{time: t, failure: true})
	}
	for _, t := range suspensions {
		merged = append(merged, observation{time: t})
	}
	// Stable: at equal times failures keep their place ahead of suspensions
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].time < merged[j].time })

	n := float64(len(merged))
	points := make([]lifedata.RankedPoint, 0, len(failures))
	previousRank := 0.0
	for i, obs := range merged {
		if !obs.failure {
			continue
		}
		itemsRemaining := n - float64(i)
		increment := (n + 1 - previousRank) / (1 + itemsRemaining)
		rank := previousRank + increment
		previousRank = rank

		prob := (rank - 0.3) / (n + 0.4)
		if prob >= 1 {
			continue
		}
		points = append(points, lifedata.RankedPoint{Time: obs.time, Prob: prob})
	}
	return points
}
