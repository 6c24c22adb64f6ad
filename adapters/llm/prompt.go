package llm

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"relialab/domain/lifedata"
	"relialab/ports"
)

// parameterLabels gives the reader-facing name of each parameter key
var parameterLabels = map[string]string{
	"beta":      "shape β",
	"eta":       "scale η",
	"mean":      "mean μ",
	"stdDev":    "standard deviation σ",
	"logMean":   "log-mean μ",
	"logStdDev": "log-standard deviation σ",
	"lambda":    "failure rate λ",
	"alpha":     "scale α",
	"mu":        "location μ",
	"sigma":     "scale σ",
}

// BuildSummaryPrompt renders the scalar results of a fit as a prompt.
// Only parameters, fit statistics and counts are included.
func BuildSummaryPrompt(req ports.SummaryRequest) string {
	var b strings.Builder

	name := req.Name
	if name == "" {
		name = "unnamed dataset"
	}
	fmt.Fprintf(&b, "Life-data analysis: %s\n", name)
	fmt.Fprintf(&b, "Distribution: %s, estimated by %s\n", req.Distribution, methodName(req.Method))
	fmt.Fprintf(&b, "Observations: %d failures, %d suspensions\n", req.FailureCount, req.SuspensionCount)

	b.WriteString("Parameters:\n")
	keys := make([]string, 0, len(req.Parameters))
	for k := range req.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := parameterLabels[k]
		if label == "" {
			label = k
		}
		fmt.Fprintf(&b, "- %s = %.6g\n", label, req.Parameters[k])
	}

	if !math.IsNaN(req.RSquared) {
		fmt.Fprintf(&b, "Rank-regression R² = %.4f\n", req.RSquared)
	}
	if !math.IsNaN(req.LogLikelihood) && !math.IsInf(req.LogLikelihood, 0) {
		fmt.Fprintf(&b, "Log-likelihood = %.4f\n", req.LogLikelihood)
	}

	if len(req.BLives) > 0 {
		names := make([]string, 0, len(req.BLives))
		for k := range req.BLives {
			names = append(names, k)
		}
		sort.Strings(names)
		b.WriteString("Characteristic lives:\n")
		for _, k := range names {
			fmt.Fprintf(&b, "- %s life = %.6g\n", k, req.BLives[k])
		}
	}

	b.WriteString("\nWrite a short summary (at most 150 words) for a maintenance engineer: ")
	b.WriteString("what the failure mode looks like (infant mortality, random or wear-out where the family allows it), ")
	b.WriteString("how well the model fits, and one practical recommendation. Do not invent numbers that are not listed above.")
	return b.String()
}

func methodName(m lifedata.Method) string {
	switch m {
	case lifedata.MethodSRM:
		return "rank regression on Y"
	case lifedata.MethodRRX:
		return "rank regression on X"
	case lifedata.MethodMLE:
		return "maximum likelihood"
	}
	return string(m)
}
