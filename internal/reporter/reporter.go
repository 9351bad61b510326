package reporter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// DefaultMaterialityFraction is the materiality floor: an effect smaller
// than this fraction of the pre-crash baseline mean is not attributed.
const DefaultMaterialityFraction = 0.01

// Reporter combines a crash, its candidate causes, and a causal estimate
// into the final impact report. Pure and side-effect free; Now is injectable
// so ongoing-crash durations are testable.
type Reporter struct {
	MaterialityFraction float64
	Now                 func() time.Time
}

// New returns a Reporter with the given materiality floor; non-positive
// values fall back to the default.
func New(materialityFraction float64) *Reporter {
	if materialityFraction <= 0 {
		materialityFraction = DefaultMaterialityFraction
	}
	return &Reporter{
		MaterialityFraction: materialityFraction,
		Now:                 time.Now,
	}
}

// Report builds the impact report for one crash. Extra notes (for example a
// skipped estimation) are carried into the confidence note so no recovered
// condition goes unreported.
func (r *Reporter) Report(crash models.CrashEvent, candidates []models.CandidateCause, estimate *models.CausalEstimate, notes ...string) models.ImpactReport {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	end := models.Day(now())
	if crash.RecoveredAt != nil {
		end = models.Day(*crash.RecoveredAt)
	}
	duration := models.DaysBetween(crash.DetectedAt, end)
	if duration < 1 {
		duration = 1
	}

	report := models.ImpactReport{
		Crash:        crash,
		Estimate:     estimate,
		DurationDays: duration,
	}
	if len(candidates) > 0 {
		top := candidates[0]
		report.Cause = &top
	}
	if estimate != nil {
		report.TotalImpact = estimate.DailyEffect * float64(duration)
	}

	noteList := append([]string(nil), notes...)

	switch {
	case len(candidates) == 0:
		report.Status = models.StatusUnattributed
		report.TotalImpact = 0
		noteList = append(noteList, "no high-risk events inside the lookback window")
	case estimate == nil:
		report.Status = models.StatusInconclusive
	case estimate.StandardError == nil:
		report.Status = models.StatusInconclusive
		noteList = append(noteList, "standard error unavailable: degenerate baseline")
	case !r.material(crash, estimate):
		report.Status = models.StatusInconclusive
		noteList = append(noteList, fmt.Sprintf("effect below materiality floor (%.1f%% of baseline)", r.materiality()*100))
	default:
		report.Status = models.StatusAttributed
	}

	if estimate != nil && estimate.Refutation != nil {
		if estimate.Refutation.Passed {
			noteList = append(noteList, fmt.Sprintf("placebo check passed (%d simulations)", estimate.Refutation.Simulations))
		} else {
			noteList = append(noteList, "placebo check failed: effect comparable to random permutations")
		}
	}
	if !crash.Recovered() {
		noteList = append(noteList, "crash ongoing: impact accrues through today")
	}

	report.ConfidenceNote = strings.Join(noteList, "; ")
	return report
}

func (r *Reporter) material(crash models.CrashEvent, estimate *models.CausalEstimate) bool {
	floor := r.materiality() * math.Abs(crash.BaselineMean)
	return math.Abs(estimate.DailyEffect) > floor
}

func (r *Reporter) materiality() float64 {
	if r.MaterialityFraction <= 0 {
		return DefaultMaterialityFraction
	}
	return r.MaterialityFraction
}
