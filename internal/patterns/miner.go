package patterns

import (
	"sort"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// Mine aggregates a run's impact reports into per-component crash patterns:
// which components keep showing up as culprits, how often, and at what cost.
// Reports without an attributed component fall under "(unattributed)".
func Mine(reports []models.ImpactReport) []models.CrashPattern {
	if len(reports) == 0 {
		return nil
	}

	aggregates := make(map[string]*componentAggregate)
	for _, report := range reports {
		key := "(unattributed)"
		if report.Cause != nil && report.Cause.Event.HasComponent() {
			key = report.Cause.Event.Component
		}

		agg, ok := aggregates[key]
		if !ok {
			agg = &componentAggregate{}
			aggregates[key] = agg
		}
		agg.occurrences++
		agg.totalImpact += report.TotalImpact
		if report.Estimate != nil {
			agg.effectSum += report.Estimate.DailyEffect
			agg.effectCount++
		}
		if report.Crash.DetectedAt.After(agg.lastSeen) {
			agg.lastSeen = report.Crash.DetectedAt
		}
	}

	mined := make([]models.CrashPattern, 0, len(aggregates))
	for component, agg := range aggregates {
		pattern := models.CrashPattern{
			Component:   component,
			Occurrences: agg.occurrences,
			Prevalence:  float64(agg.occurrences) / float64(len(reports)),
			TotalImpact: agg.totalImpact,
			LastSeen:    agg.lastSeen,
		}
		if agg.effectCount > 0 {
			pattern.AvgDailyEffect = agg.effectSum / float64(agg.effectCount)
		}
		mined = append(mined, pattern)
	}

	sort.Slice(mined, func(i, j int) bool {
		if mined[i].Prevalence != mined[j].Prevalence {
			return mined[i].Prevalence > mined[j].Prevalence
		}
		return mined[i].Component < mined[j].Component
	})

	return mined
}

type componentAggregate struct {
	occurrences int
	totalImpact float64
	effectSum   float64
	effectCount int
	lastSeen    time.Time
}
