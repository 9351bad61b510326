package detector

import (
	"errors"
	"math"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

const (
	// DefaultWindow is the rolling baseline size in days.
	DefaultWindow = 7
	// DefaultThreshold is the z-score cutoff for opening a crash.
	DefaultThreshold = 2.0
	// DefaultRecoveryFraction scales the threshold for the recovery band.
	// A crash closes once z >= -threshold*fraction, which keeps noisy
	// recoveries from flapping the same incident open and closed.
	DefaultRecoveryFraction = 0.5

	minWindow = 3
)

// Detector scans a metric series for abnormal drops below a rolling
// baseline. It is a pure function over its input: no state survives a call.
type Detector struct {
	Window           int
	Threshold        float64
	RecoveryFraction float64
}

// New returns a Detector, applying defaults for out-of-range parameters.
func New(window int, threshold float64) *Detector {
	if window < minWindow {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		Window:           window,
		Threshold:        threshold,
		RecoveryFraction: DefaultRecoveryFraction,
	}
}

// Detect returns one CrashEvent per contiguous abnormal episode, ordered by
// detection date. Consecutive triggers inside an unresolved episode coalesce
// into a single event anchored at the point of minimum z-score.
func (d *Detector) Detect(series models.MetricSeries) ([]models.CrashEvent, error) {
	window := d.Window
	if window < minWindow {
		window = DefaultWindow
	}
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	recovery := d.RecoveryFraction
	if recovery <= 0 || recovery >= 1 {
		recovery = DefaultRecoveryFraction
	}

	if series.Len() < window+1 {
		return nil, &utils.InsufficientDataError{
			Op:     "detector.Detect",
			Needed: window + 1,
			Got:    series.Len(),
		}
	}

	// Fallback spread for flat baseline windows: a drop out of a perfectly
	// constant stretch still has to register against the series as a whole.
	seriesStd := overallStd(series.Points)

	var (
		crashes []models.CrashEvent
		open    *models.CrashEvent
	)

	for i := window; i < series.Len(); i++ {
		mean, std, err := rollingStats(series.Points, i, window)
		if err != nil {
			var degenerate *utils.DegenerateSeriesError
			if !errors.As(err, &degenerate) {
				return nil, err
			}
			if seriesStd == 0 {
				// Constant series: no spread anywhere, no signal, and an
				// open crash cannot be judged either way.
				continue
			}
			std = seriesStd
		}

		point := series.Points[i]
		z := (point.Value - mean) / std

		if open != nil {
			if z >= -threshold*recovery {
				recovered := models.Day(point.Date)
				open.RecoveredAt = &recovered
				crashes = append(crashes, *open)
				open = nil
				continue
			}
			// Still inside the episode: keep the deepest point as anchor.
			if z < open.ZScore {
				open.DetectedAt = models.Day(point.Date)
				open.ZScore = z
				open.BaselineMean = mean
				open.BaselineStd = std
				open.ObservedValue = point.Value
			}
			continue
		}

		if z < -threshold {
			open = &models.CrashEvent{
				DetectedAt:    models.Day(point.Date),
				ZScore:        z,
				BaselineMean:  mean,
				BaselineStd:   std,
				ObservedValue: point.Value,
			}
		}
	}

	if open != nil {
		// Series ended while still below the recovery band: ongoing crash.
		crashes = append(crashes, *open)
	}

	return crashes, nil
}

// rollingStats computes mean and sample standard deviation over the window
// points strictly preceding index i. A zero-variance window is reported as
// DegenerateSeriesError so callers can skip the point instead of dividing
// by zero.
func rollingStats(points []models.MetricPoint, i, window int) (mean, std float64, err error) {
	for j := i - window; j < i; j++ {
		mean += points[j].Value
	}
	mean /= float64(window)

	variance := 0.0
	for j := i - window; j < i; j++ {
		diff := points[j].Value - mean
		variance += diff * diff
	}
	variance /= float64(window - 1)

	if variance == 0 {
		return mean, 0, &utils.DegenerateSeriesError{Index: i}
	}
	return mean, math.Sqrt(variance), nil
}

// overallStd returns the sample standard deviation of the whole series.
func overallStd(points []models.MetricPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range points {
		mean += p.Value
	}
	mean /= float64(len(points))

	variance := 0.0
	for _, p := range points {
		diff := p.Value - mean
		variance += diff * diff
	}
	variance /= float64(len(points) - 1)

	return math.Sqrt(variance)
}
