package causal

import (
	"errors"
	"math"
	"sort"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

// minPerSide is the minimum number of observations required on each side of
// the treatment boundary for a fit to be attempted.
const minPerSide = 2

// degenerateStdFloor marks pre-crash baselines with effectively no variance;
// such fits keep their point estimate but carry no standard error.
const degenerateStdFloor = 1e-9

// Estimator computes the average causal effect of a crash on the metric via
// covariate-adjusted linear regression (backdoor adjustment). Without
// confounders the fit reduces to the plain pre/post mean difference.
type Estimator struct{}

// New returns an Estimator.
func New() *Estimator {
	return &Estimator{}
}

// observation is one aligned regression row.
type observation struct {
	outcome     float64
	treated     float64
	confounders []float64
	preCrash    bool
}

// Estimate fits outcome ~ b0 + b1*treated + sum(bk*confounder_k) and returns
// b1 as the daily effect. Confounder series are aligned by date; rows
// missing a confounder value are dropped from the fit.
func (e *Estimator) Estimate(series models.MetricSeries, crash models.CrashEvent, confounders map[string]models.MetricSeries) (models.CausalEstimate, error) {
	names := sortedNames(confounders)
	rows := alignObservations(series, crash, names, confounders)

	treatedCount, controlCount := 0, 0
	for _, row := range rows {
		if row.treated == 1 {
			treatedCount++
		} else {
			controlCount++
		}
	}
	if treatedCount < minPerSide || controlCount < minPerSide {
		got := treatedCount
		if controlCount < got {
			got = controlCount
		}
		return models.CausalEstimate{}, &utils.InsufficientDataError{
			Op:     "causal.Estimate",
			Needed: minPerSide,
			Got:    got,
		}
	}

	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		x[i] = append([]float64{1, row.treated}, row.confounders...)
		y[i] = row.outcome
	}

	fit, err := solveLeastSquares(x, y)
	var degenerate *utils.EstimationDegenerateError
	if err != nil && !errors.As(err, &degenerate) {
		return models.CausalEstimate{}, err
	}
	adjusted := len(names) > 0
	if degenerate != nil {
		// Collinear confounders: fall back to the unadjusted difference so
		// the report still carries a point estimate, just without an error
		// bar for the reporter to trust.
		fit = simpleDifferenceFit(rows)
		fit.stdErr = nil
		adjusted = false
		names = nil
	}

	estimate := models.CausalEstimate{
		DailyEffect:     fit.coef[1],
		Method:          models.MethodSimpleDifference,
		ConfoundersUsed: names,
	}
	if adjusted {
		estimate.Method = models.MethodAdjustedDifference
	}

	if fit.stdErr != nil && !preCrashDegenerate(rows) {
		se := fit.stdErr[1]
		if !math.IsNaN(se) && !math.IsInf(se, 0) {
			estimate.StandardError = &se
		}
	}

	return estimate, nil
}

// alignObservations builds regression rows with the binary treatment
// indicator: 1 for dates in [DetectedAt, RecoveredAt), or through the series
// end while the crash is ongoing.
func alignObservations(series models.MetricSeries, crash models.CrashEvent, names []string, confounders map[string]models.MetricSeries) []observation {
	detected := models.Day(crash.DetectedAt)

	rows := make([]observation, 0, series.Len())
	for _, p := range series.Points {
		day := models.Day(p.Date)

		treated := 0.0
		if !day.Before(detected) {
			treated = 1
			if crash.RecoveredAt != nil && !day.Before(models.Day(*crash.RecoveredAt)) {
				treated = 0
			}
		}

		row := observation{
			outcome:  p.Value,
			treated:  treated,
			preCrash: day.Before(detected),
		}

		complete := true
		for _, name := range names {
			v, ok := confounders[name].ValueAt(day)
			if !ok {
				complete = false
				break
			}
			row.confounders = append(row.confounders, v)
		}
		if !complete {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// simpleDifferenceFit computes the unadjusted pre/post mean difference in
// the same coefficient layout as the regression.
func simpleDifferenceFit(rows []observation) lsFit {
	var treated, control []float64
	for _, row := range rows {
		if row.treated == 1 {
			treated = append(treated, row.outcome)
		} else {
			control = append(control, row.outcome)
		}
	}
	controlMean, _ := meanStd(control)
	treatedMean, _ := meanStd(treated)
	return lsFit{coef: []float64{controlMean, treatedMean - controlMean}}
}

// preCrashDegenerate reports whether the pre-crash baseline has effectively
// zero variance, leaving nothing for the regression error to validate
// against.
func preCrashDegenerate(rows []observation) bool {
	var pre []float64
	for _, row := range rows {
		if row.preCrash {
			pre = append(pre, row.outcome)
		}
	}
	_, std := meanStd(pre)
	return std < degenerateStdFloor
}

func sortedNames(confounders map[string]models.MetricSeries) []string {
	if len(confounders) == 0 {
		return nil
	}
	names := make([]string, 0, len(confounders))
	for name := range confounders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
