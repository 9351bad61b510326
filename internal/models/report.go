package models

import "time"

// ReportStatus summarises how defensible a crash attribution is.
type ReportStatus string

const (
	StatusAttributed   ReportStatus = "ATTRIBUTED"
	StatusUnattributed ReportStatus = "UNATTRIBUTED"
	StatusInconclusive ReportStatus = "INCONCLUSIVE"
)

// ImpactReport is the terminal artifact for one detected crash.
type ImpactReport struct {
	Crash          CrashEvent      `json:"crash"`
	Cause          *CandidateCause `json:"cause,omitempty"`
	Estimate       *CausalEstimate `json:"estimate,omitempty"`
	DurationDays   int             `json:"duration_days"`
	TotalImpact    float64         `json:"total_impact"`
	Status         ReportStatus    `json:"status"`
	ConfidenceNote string          `json:"confidence_note,omitempty"`
	Advice         []string        `json:"advice,omitempty"`
}

// CrashPattern aggregates recurring culprit components across a run's
// reports.
type CrashPattern struct {
	Component      string    `json:"component"`
	Occurrences    int       `json:"occurrences"`
	Prevalence     float64   `json:"prevalence"`
	AvgDailyEffect float64   `json:"avg_daily_effect"`
	TotalImpact    float64   `json:"total_impact"`
	LastSeen       time.Time `json:"last_seen"`
}
