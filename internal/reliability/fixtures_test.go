package reliability

// fixtureFailures is a small right-skewed failure sample with one repeated time
var fixtureFailures = []float64{105, 213, 332, 351, 365, 397, 400, 397, 437, 1014, 1126, 1132, 3944, 5042}

// adversarialMLE drives the first Newton step for β below zero
var (
	adversarialFailures    = []float64{1, 2}
	adversarialSuspensions = []float64{1e6}
)

func near(got, want, relTol float64) bool {
	if want == 0 {
		return got == 0
	}
	d := (got - want) / want
	return d <= relTol && d >= -relTol
}
