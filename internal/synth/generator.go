// Package synth produces deterministic synthetic fixtures: a daily revenue
// series with injected incidents, the matching latency confounder, and the
// engineering event log that explains the damage.
package synth

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
)

// Config controls fixture generation. Incidents are crash start days; each
// one emits a HIGH-risk VCS event and degrades revenue until recovery.
type Config struct {
	Start        time.Time
	Days         int
	BaseRevenue  float64
	RevenueNoise float64
	BaseLatency  float64
	LatencyNoise float64
	CrashDrop    float64
	DailyRecover float64
	Incidents    []time.Time
	Seed         int64
}

// DefaultConfig mirrors the canonical demo scenario: 60 days of ~$50k
// revenue with one incident two thirds of the way in.
func DefaultConfig() Config {
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	return Config{
		Start:        start,
		Days:         60,
		BaseRevenue:  50000,
		RevenueNoise: 2000,
		BaseLatency:  200,
		LatencyNoise: 15,
		CrashDrop:    30000,
		DailyRecover: 5000,
		Incidents:    []time.Time{start.AddDate(0, 0, 45)},
		Seed:         42,
	}
}

// Dataset is a generated fixture bundle.
type Dataset struct {
	Revenue models.MetricSeries
	Latency models.MetricSeries
	Events  []models.ExternalEvent
}

// noise descriptions for low-risk filler events.
var routineChanges = []struct {
	source      models.EventSource
	description string
}{
	{models.SourceVCS, "chore: optimized image assets"},
	{models.SourceVCS, "docs: updated copyright year"},
	{models.SourceTicket, "ops: ran vacuum on reporting DB"},
	{models.SourceChat, "restarted cache node after patch window"},
	{models.SourceVCS, "style: updated CSS for landing page"},
	{models.SourceCI, "build: bumped pipeline base image"},
}

// Generate builds the fixture dataset. The same config always yields the
// same bytes, which keeps pipeline idempotence tests honest.
func Generate(cfg Config) Dataset {
	if cfg.Days <= 0 {
		cfg = DefaultConfig()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	incidents := make(map[time.Time]bool, len(cfg.Incidents))
	for _, d := range cfg.Incidents {
		incidents[models.Day(d)] = true
	}

	ds := Dataset{
		Revenue: models.MetricSeries{Name: "daily_revenue"},
		Latency: models.MetricSeries{Name: "avg_latency_ms"},
	}

	crashEffect := 0.0
	for i := 0; i < cfg.Days; i++ {
		day := models.Day(cfg.Start.AddDate(0, 0, i))

		latency := cfg.BaseLatency + rng.NormFloat64()*cfg.LatencyNoise
		revenue := cfg.BaseRevenue + rng.NormFloat64()*cfg.RevenueNoise

		if incidents[day] {
			crashEffect = -cfg.CrashDrop
			ds.Events = append(ds.Events, models.ExternalEvent{
				Timestamp:   day.Add(10 * time.Hour),
				Source:      models.SourceVCS,
				Risk:        models.RiskHigh,
				Component:   "payment_api",
				Description: "feat: switched payment API to synchronous validation loop",
			})
		}

		if crashEffect < 0 {
			// Broken state: latency spikes and drags revenue with it.
			latency += 400
			revenue += crashEffect
			crashEffect += cfg.DailyRecover
			if crashEffect > 0 {
				crashEffect = 0
			}
		}

		if revenue < 1000 {
			revenue = 1000
		}

		ds.Revenue.Points = append(ds.Revenue.Points, models.MetricPoint{Date: day, Value: revenue})
		ds.Latency.Points = append(ds.Latency.Points, models.MetricPoint{Date: day, Value: latency})

		for n := rng.Intn(3); n >= 0; n-- {
			change := routineChanges[rng.Intn(len(routineChanges))]
			ds.Events = append(ds.Events, models.ExternalEvent{
				Timestamp:   day.Add(time.Duration(9+rng.Intn(8)) * time.Hour),
				Source:      change.source,
				Risk:        models.RiskLow,
				Description: fmt.Sprintf("%s (#%d)", change.description, rng.Intn(9000)+1000),
			})
		}
	}

	return ds
}
