package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/causalstack/causal-sentinel/internal/cache"
	"github.com/causalstack/causal-sentinel/internal/engine"
	"github.com/causalstack/causal-sentinel/internal/metrics"
	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

// Analyzer is the service facade over the analysis pipeline: it memoizes
// identical requests by content fingerprint, tracks latency, and records
// Prometheus observations.
type Analyzer struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	cache     cache.Provider
	resultTTL time.Duration
	latencies *utils.LatencyTracker
}

// NewAnalyzer constructs the analyzer facade. A nil cache disables
// memoization.
func NewAnalyzer(logger *slog.Logger, pipeline *engine.Pipeline, provider cache.Provider, resultTTL time.Duration) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Analyzer{
		logger:    logger,
		pipeline:  pipeline,
		cache:     provider,
		resultTTL: resultTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs the pipeline for a request, serving repeated identical
// requests from the memoization cache.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	key, fingerprintable := fingerprint(req)
	if fingerprintable {
		if cached, err := a.cache.Get(ctx, key); err == nil {
			var result models.AnalysisResult
			if err := json.Unmarshal(cached, &result); err == nil {
				a.logger.Debug("analysis served from cache", slog.String("run_id", result.RunID))
				metrics.ObserveAnalysis(0, metrics.OutcomeCached)
				return result, nil
			}
			// A corrupt entry is dropped and the analysis recomputed.
			_ = a.cache.Del(ctx, key)
		}
	}

	start := time.Now()
	result, err := a.pipeline.Analyze(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		return models.AnalysisResult{}, err
	}

	result.RunID = uuid.NewString()

	a.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	metrics.AddCrashes(len(result.Reports))
	if count := a.latencies.Count(); count >= 20 && count%20 == 0 {
		a.logger.Info("analysis latency",
			slog.Duration("p95", a.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	if fingerprintable {
		if encoded, err := json.Marshal(result); err == nil {
			_ = a.cache.Set(ctx, key, encoded, a.resultTTL)
		}
	}

	return result, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (a *Analyzer) LatencyP95() time.Duration {
	if a.latencies == nil {
		return 0
	}
	return a.latencies.Percentile(95)
}

// fingerprint derives a stable cache key from the request content. JSON
// encoding of the request is deterministic (maps marshal with sorted keys),
// so identical inputs always map to the same key.
func fingerprint(req models.AnalysisRequest) (string, bool) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(encoded)
	return "sentinel:analysis:" + hex.EncodeToString(sum[:]), true
}
