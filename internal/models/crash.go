package models

import "time"

// CrashEvent marks a window where the metric deviated abnormally below its
// rolling baseline. RecoveredAt stays nil while the crash is ongoing.
type CrashEvent struct {
	DetectedAt    time.Time  `json:"detected_at"`
	ZScore        float64    `json:"z_score"`
	BaselineMean  float64    `json:"baseline_mean"`
	BaselineStd   float64    `json:"baseline_std"`
	ObservedValue float64    `json:"observed_value"`
	RecoveredAt   *time.Time `json:"recovered_at,omitempty"`
}

// Recovered reports whether the series returned inside the normal band.
func (c CrashEvent) Recovered() bool { return c.RecoveredAt != nil }

// EstimateMethod names the estimator variant that produced a CausalEstimate.
type EstimateMethod string

const (
	MethodSimpleDifference   EstimateMethod = "SIMPLE_DIFFERENCE"
	MethodAdjustedDifference EstimateMethod = "ADJUSTED_DIFFERENCE"
)

// CausalEstimate is the covariate-adjusted estimate of the metric's
// counterfactual shift during a crash. DailyEffect is signed; negative
// means loss. StandardError is nil when the fit was degenerate.
type CausalEstimate struct {
	DailyEffect     float64           `json:"daily_effect"`
	StandardError   *float64          `json:"standard_error,omitempty"`
	Method          EstimateMethod    `json:"method"`
	ConfoundersUsed []string          `json:"confounders_used,omitempty"`
	Refutation      *RefutationResult `json:"refutation,omitempty"`
}

// RefutationResult records the placebo stress test of an estimate: the
// average effect recovered under randomly permuted treatment labels.
type RefutationResult struct {
	PlaceboEffect float64 `json:"placebo_effect"`
	Simulations   int     `json:"simulations"`
	Passed        bool    `json:"passed"`
}
