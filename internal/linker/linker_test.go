package linker

import (
	"testing"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
)

var crashDay = time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)

func highEvent(daysBefore int, component, description string) models.ExternalEvent {
	return models.ExternalEvent{
		Timestamp:   crashDay.AddDate(0, 0, -daysBefore).Add(10 * time.Hour),
		Source:      models.SourceVCS,
		Risk:        models.RiskHigh,
		Component:   component,
		Description: description,
	}
}

func TestLinkFiltersAndRanks(t *testing.T) {
	events := []models.ExternalEvent{
		highEvent(3, "", "schema migration"),
		highEvent(1, "payment_api", "switched to synchronous validation"),
		highEvent(5, "search", "outside the window"),
		highEvent(-1, "billing", "after the crash"),
		{
			Timestamp:   crashDay.Add(-2 * 24 * time.Hour),
			Source:      models.SourceChat,
			Risk:        models.RiskLow,
			Description: "routine restart",
		},
	}

	l := New(3)
	candidates := l.Link(models.CrashEvent{DetectedAt: crashDay}, events)

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Event.Component != "payment_api" {
		t.Fatalf("expected payment_api first, got %q", candidates[0].Event.Component)
	}
	if candidates[0].LagDays != 1 || candidates[1].LagDays != 3 {
		t.Fatalf("unexpected lags: %d, %d", candidates[0].LagDays, candidates[1].LagDays)
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].RankScore > candidates[i-1].RankScore {
			t.Fatalf("rank scores not non-increasing at %d", i)
		}
	}
	if got := candidates[0].RankScore; got != 0.5 {
		t.Fatalf("expected rank 0.5 for lag 1, got %f", got)
	}
}

func TestLinkSameDayEventCounts(t *testing.T) {
	l := New(3)
	candidates := l.Link(models.CrashEvent{DetectedAt: crashDay}, []models.ExternalEvent{
		highEvent(0, "payment_api", "same-day deploy"),
	})
	if len(candidates) != 1 {
		t.Fatalf("expected same-day event to qualify, got %d", len(candidates))
	}
	if candidates[0].LagDays != 0 || candidates[0].RankScore != 1.0 {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
}

func TestLinkComponentBreaksTies(t *testing.T) {
	l := New(3)
	candidates := l.Link(models.CrashEvent{DetectedAt: crashDay}, []models.ExternalEvent{
		highEvent(1, "", "generic change"),
		highEvent(1, "checkout", "named change"),
	})
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Event.Component != "checkout" {
		t.Fatalf("expected component-bearing event first, got %q", candidates[0].Event.Description)
	}
}

func TestLinkNoCandidates(t *testing.T) {
	l := New(3)
	candidates := l.Link(models.CrashEvent{DetectedAt: crashDay}, []models.ExternalEvent{
		{Timestamp: crashDay.AddDate(0, 0, -1), Source: models.SourceVCS, Risk: models.RiskLow, Description: "docs"},
	})
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}
