package causal

import (
	"math"
	"math/rand"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// DefaultSimulations is the number of placebo permutations to run.
const DefaultSimulations = 10

// Refute stress-tests an estimate by refitting the model under randomly
// permuted treatment labels. A real effect should dwarf the placebo one;
// the verdict passes when |effect| exceeds twice the mean placebo magnitude.
// The seed makes repeated runs on identical inputs byte-identical.
func (e *Estimator) Refute(series models.MetricSeries, crash models.CrashEvent, estimate models.CausalEstimate, confounders map[string]models.MetricSeries, simulations int, seed int64) models.RefutationResult {
	if simulations <= 0 {
		simulations = DefaultSimulations
	}

	names := sortedNames(confounders)
	rows := alignObservations(series, crash, names, confounders)
	if len(rows) < 2*minPerSide {
		return models.RefutationResult{Simulations: 0, Passed: false}
	}

	treatment := make([]float64, len(rows))
	for i, row := range rows {
		treatment[i] = row.treated
	}

	rng := rand.New(rand.NewSource(seed))

	total := 0.0
	completed := 0
	for s := 0; s < simulations; s++ {
		placebo := append([]float64(nil), treatment...)
		rng.Shuffle(len(placebo), func(i, j int) {
			placebo[i], placebo[j] = placebo[j], placebo[i]
		})

		x := make([][]float64, len(rows))
		y := make([]float64, len(rows))
		for i, row := range rows {
			x[i] = append([]float64{1, placebo[i]}, row.confounders...)
			y[i] = row.outcome
		}

		fit, err := solveLeastSquares(x, y)
		if err != nil {
			continue
		}
		total += math.Abs(fit.coef[1])
		completed++
	}

	result := models.RefutationResult{Simulations: completed}
	if completed == 0 {
		return result
	}
	result.PlaceboEffect = total / float64(completed)
	result.Passed = math.Abs(estimate.DailyEffect) > 2*result.PlaceboEffect
	return result
}
