package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/causalstack/causal-sentinel/internal/causal"
	"github.com/causalstack/causal-sentinel/internal/detector"
	"github.com/causalstack/causal-sentinel/internal/linker"
	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/patterns"
	"github.com/causalstack/causal-sentinel/internal/reporter"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

// RollingVolatilityColumn names the derived confounder: a short rolling
// standard deviation of the outcome, standing in for market volatility.
const RollingVolatilityColumn = "rolling_volatility"

// defaultWorkers bounds the per-crash worker pool.
const defaultWorkers = 4

// Pipeline orchestrates the full analysis flow: validate, detect crashes,
// then link, estimate, and report each crash on independent workers.
type Pipeline struct {
	logger    *slog.Logger
	defaults  models.AnalysisConfig
	advisor   *reporter.Advisor
	estimator *causal.Estimator
	workers   int
	// refuteSimulations enables the placebo stress test when positive.
	refuteSimulations int
}

// Option customises pipeline construction.
type Option func(*Pipeline)

// WithWorkers bounds the number of crashes processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRefutation enables the placebo refutation with the given number of
// simulations per crash.
func WithRefutation(simulations int) Option {
	return func(p *Pipeline) { p.refuteSimulations = simulations }
}

// WithAdvisor attaches a rule-based advisor to finished reports.
func WithAdvisor(a *reporter.Advisor) Option {
	return func(p *Pipeline) { p.advisor = a }
}

// NewPipeline constructs an analysis pipeline with the supplied defaults.
func NewPipeline(logger *slog.Logger, defaults models.AnalysisConfig, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger:    logger,
		defaults:  defaults,
		estimator: causal.New(),
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs the full pipeline for one request. Input-shape errors are
// fatal and returned; per-crash numerical degeneracies are absorbed into
// that crash's report so one bad crash cannot block the others.
func (p *Pipeline) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	cfg := MergeConfig(p.defaults, req.Config)

	if err := req.Series.Validate(); err != nil {
		return models.AnalysisResult{}, err
	}
	for name, series := range req.Confounders {
		if err := series.Validate(); err != nil {
			return models.AnalysisResult{}, utils.NewAppError("pipeline", fmt.Sprintf("confounder %q", name), err)
		}
	}

	det := detector.New(cfg.Window, cfg.Threshold)
	if cfg.RecoveryFraction > 0 && cfg.RecoveryFraction < 1 {
		det.RecoveryFraction = cfg.RecoveryFraction
	}

	crashes, err := det.Detect(req.Series)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	p.logger.Debug("detection complete",
		slog.String("metric", req.Series.Name),
		slog.Int("crashes", len(crashes)))

	confounders, confounderNote := p.selectConfounders(req, cfg)

	lnk := linker.New(cfg.LookbackDays)
	rep := reporter.New(cfg.MaterialityFraction)

	reports := make([]models.ImpactReport, len(crashes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, crash := range crashes {
		i, crash := i, crash
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = p.analyzeCrash(req.Series, crash, req.Events, confounders, confounderNote, lnk, rep)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AnalysisResult{}, err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Crash.DetectedAt.Before(reports[j].Crash.DetectedAt)
	})

	return models.AnalysisResult{
		Metric:    req.Series.Name,
		Reports:   reports,
		Patterns:  patterns.Mine(reports),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// analyzeCrash runs link -> estimate -> refute -> report for one crash.
func (p *Pipeline) analyzeCrash(series models.MetricSeries, crash models.CrashEvent, events []models.ExternalEvent, confounders map[string]models.MetricSeries, confounderNote string, lnk *linker.Linker, rep *reporter.Reporter) models.ImpactReport {
	candidates := lnk.Link(crash, events)

	var notes []string
	if confounderNote != "" {
		notes = append(notes, confounderNote)
	}

	var estimate *models.CausalEstimate
	est, err := p.estimator.Estimate(series, crash, confounders)
	if err != nil {
		var insufficient *utils.InsufficientDataError
		if errors.As(err, &insufficient) {
			notes = append(notes, "estimation skipped: "+err.Error())
		} else {
			notes = append(notes, "estimation failed: "+err.Error())
		}
		p.logger.Warn("causal estimation unavailable",
			slog.Time("crash", crash.DetectedAt),
			slog.Any("error", err))
	} else {
		if p.refuteSimulations > 0 {
			seed := crash.DetectedAt.Unix()
			refutation := p.estimator.Refute(series, crash, est, confounders, p.refuteSimulations, seed)
			est.Refutation = &refutation
		}
		estimate = &est
	}

	report := rep.Report(crash, candidates, estimate, notes...)
	report.Advice = p.advisor.Advise(report)
	return report
}

// selectConfounders resolves the configured confounder columns against the
// supplied series, deriving the rolling-volatility column from the outcome
// when asked for. Unresolvable columns become a visible report note rather
// than a hard failure.
func (p *Pipeline) selectConfounders(req models.AnalysisRequest, cfg models.AnalysisConfig) (map[string]models.MetricSeries, string) {
	if len(cfg.ConfounderColumns) == 0 {
		return nil, ""
	}

	selected := make(map[string]models.MetricSeries)
	var missing []string
	for _, name := range cfg.ConfounderColumns {
		if series, ok := req.Confounders[name]; ok {
			selected[name] = series
			continue
		}
		if name == RollingVolatilityColumn {
			selected[name] = deriveVolatility(req.Series)
			continue
		}
		missing = append(missing, name)
	}

	note := ""
	if len(missing) > 0 {
		note = fmt.Sprintf("confounders unavailable and ignored: %v", missing)
		p.logger.Warn("confounder columns not supplied", slog.Any("columns", missing))
	}
	if len(selected) == 0 {
		return nil, note
	}
	return selected, note
}

// volatilityWindow is the short window used for the derived confounder.
const volatilityWindow = 3

// deriveVolatility builds a rolling standard deviation series over the
// outcome, seeded with the whole-series deviation where the window has not
// filled yet.
func deriveVolatility(series models.MetricSeries) models.MetricSeries {
	overall := seriesStd(series)

	points := make([]models.MetricPoint, series.Len())
	for i, p := range series.Points {
		start := i - volatilityWindow + 1
		if start < 0 {
			start = 0
		}
		window := series.Points[start : i+1]

		std := overall
		if len(window) >= 2 {
			mean := 0.0
			for _, w := range window {
				mean += w.Value
			}
			mean /= float64(len(window))
			variance := 0.0
			for _, w := range window {
				diff := w.Value - mean
				variance += diff * diff
			}
			std = math.Sqrt(variance / float64(len(window)-1))
		}
		points[i] = models.MetricPoint{Date: models.Day(p.Date), Value: std}
	}

	return models.MetricSeries{Name: RollingVolatilityColumn, Points: points}
}

func seriesStd(series models.MetricSeries) float64 {
	if series.Len() < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range series.Points {
		mean += p.Value
	}
	mean /= float64(series.Len())
	variance := 0.0
	for _, p := range series.Points {
		diff := p.Value - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(series.Len()-1))
}

// MergeConfig overlays caller-supplied values on the configured defaults.
func MergeConfig(defaults, override models.AnalysisConfig) models.AnalysisConfig {
	merged := defaults
	if override.Window > 0 {
		merged.Window = override.Window
	}
	if override.Threshold > 0 {
		merged.Threshold = override.Threshold
	}
	if override.RecoveryFraction > 0 {
		merged.RecoveryFraction = override.RecoveryFraction
	}
	if override.LookbackDays > 0 {
		merged.LookbackDays = override.LookbackDays
	}
	if override.MaterialityFraction > 0 {
		merged.MaterialityFraction = override.MaterialityFraction
	}
	if len(override.ConfounderColumns) > 0 {
		merged.ConfounderColumns = append([]string(nil), override.ConfounderColumns...)
	}
	if merged.Window == 0 {
		merged.Window = detector.DefaultWindow
	}
	if merged.Threshold == 0 {
		merged.Threshold = detector.DefaultThreshold
	}
	if merged.LookbackDays == 0 {
		merged.LookbackDays = linker.DefaultLookbackDays
	}
	if merged.MaterialityFraction == 0 {
		merged.MaterialityFraction = reporter.DefaultMaterialityFraction
	}
	return merged
}
