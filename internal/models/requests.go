package models

import "time"

// AnalysisConfig carries the tunables exposed to callers. Zero values mean
// "use the configured default".
type AnalysisConfig struct {
	Window              int      `json:"window,omitempty" yaml:"window"`
	Threshold           float64  `json:"threshold,omitempty" yaml:"threshold"`
	RecoveryFraction    float64  `json:"recovery_fraction,omitempty" yaml:"recoveryFraction"`
	LookbackDays        int      `json:"lookback_days,omitempty" yaml:"lookbackDays"`
	MaterialityFraction float64  `json:"materiality_fraction,omitempty" yaml:"materialityFraction"`
	ConfounderColumns   []string `json:"confounder_columns,omitempty" yaml:"confounderColumns"`
}

// AnalysisRequest is the full input to one pipeline run.
type AnalysisRequest struct {
	Series      MetricSeries            `json:"series"`
	Events      []ExternalEvent         `json:"events"`
	Confounders map[string]MetricSeries `json:"confounders,omitempty"`
	Config      AnalysisConfig          `json:"config,omitempty"`
}

// AnalysisResult is the output envelope of one pipeline run.
type AnalysisResult struct {
	RunID     string         `json:"run_id"`
	Metric    string         `json:"metric"`
	Reports   []ImpactReport `json:"reports"`
	Patterns  []CrashPattern `json:"patterns,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
