package linker

import (
	"sort"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// DefaultLookbackDays bounds the search window before a crash.
const DefaultLookbackDays = 3

// Linker selects the most plausible causal candidates for a crash from a
// list of risk-classified external events.
type Linker struct {
	LookbackDays int
}

// New returns a Linker with the given lookback window; negative values fall
// back to the default.
func New(lookbackDays int) *Linker {
	if lookbackDays < 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Linker{LookbackDays: lookbackDays}
}

// Link filters events to high-risk ones inside the lookback window ending at
// the crash and ranks them by recency. Events naming a component outrank
// generic ones at equal lag. An empty result is valid: the crash simply
// stands unattributed.
func (l *Linker) Link(crash models.CrashEvent, events []models.ExternalEvent) []models.CandidateCause {
	lookback := l.LookbackDays
	if lookback < 0 {
		lookback = DefaultLookbackDays
	}

	crashDay := models.Day(crash.DetectedAt)

	candidates := make([]models.CandidateCause, 0)
	for _, ev := range events {
		if ev.Risk != models.RiskHigh {
			continue
		}
		lag := models.DaysBetween(ev.Timestamp, crashDay)
		if lag < 0 || lag > lookback {
			continue
		}
		candidates = append(candidates, models.CandidateCause{
			Event:     ev,
			LagDays:   lag,
			RankScore: 1.0 / float64(1+lag),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.Event.HasComponent() != b.Event.HasComponent() {
			return a.Event.HasComponent()
		}
		// Deterministic fallbacks keep repeated runs byte-identical.
		if !a.Event.Timestamp.Equal(b.Event.Timestamp) {
			return a.Event.Timestamp.After(b.Event.Timestamp)
		}
		return a.Event.Description < b.Event.Description
	})

	return candidates
}
