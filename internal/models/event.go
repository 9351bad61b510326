package models

import "time"

// EventSource enumerates the systems an external event can originate from.
type EventSource string

const (
	SourceVCS    EventSource = "VCS"
	SourceTicket EventSource = "TICKET"
	SourceChat   EventSource = "CHAT"
	SourceCI     EventSource = "CI"
)

// RiskLevel is the classification attached upstream to each external event.
type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskHigh RiskLevel = "HIGH"
)

// ExternalEvent is a risk-classified engineering event produced by the
// ingestion/classification collaborators. The engine only reads these.
type ExternalEvent struct {
	Timestamp   time.Time   `json:"timestamp"`
	Source      EventSource `json:"source"`
	Risk        RiskLevel   `json:"risk"`
	Component   string      `json:"component,omitempty"`
	Description string      `json:"description"`
}

// HasComponent reports whether the classifier named an affected component.
func (e ExternalEvent) HasComponent() bool { return e.Component != "" }

// CandidateCause is a ranked link between a crash and an external event.
type CandidateCause struct {
	Event     ExternalEvent `json:"event"`
	LagDays   int           `json:"lag_days"`
	RankScore float64       `json:"rank_score"`
}
