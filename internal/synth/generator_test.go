package synth

import (
	"reflect"
	"testing"

	"github.com/causalstack/causal-sentinel/internal/models"
)

func TestGenerateDeterministic(t *testing.T) {
	first := Generate(DefaultConfig())
	second := Generate(DefaultConfig())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same config must generate identical fixtures")
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultConfig()
	dataset := Generate(cfg)

	if dataset.Revenue.Len() != cfg.Days || dataset.Latency.Len() != cfg.Days {
		t.Fatalf("expected %d days, got %d revenue / %d latency",
			cfg.Days, dataset.Revenue.Len(), dataset.Latency.Len())
	}
	if err := dataset.Revenue.Validate(); err != nil {
		t.Fatalf("revenue series invalid: %v", err)
	}
	if err := dataset.Latency.Validate(); err != nil {
		t.Fatalf("latency series invalid: %v", err)
	}
	for i := range dataset.Revenue.Points {
		if !dataset.Revenue.Points[i].Date.Equal(dataset.Latency.Points[i].Date) {
			t.Fatalf("calendar mismatch at %d", i)
		}
	}
}

func TestGenerateInjectsHighRiskDeploy(t *testing.T) {
	dataset := Generate(DefaultConfig())

	var high []models.ExternalEvent
	for _, ev := range dataset.Events {
		if ev.Risk == models.RiskHigh {
			high = append(high, ev)
		}
	}
	if len(high) != 1 {
		t.Fatalf("expected exactly one high-risk event, got %d", len(high))
	}
	if high[0].Component != "payment_api" || high[0].Source != models.SourceVCS {
		t.Fatalf("unexpected incident event: %+v", high[0])
	}

	incidentDay := models.Day(high[0].Timestamp)
	value, ok := dataset.Revenue.ValueAt(incidentDay)
	if !ok {
		t.Fatalf("incident day missing from the series")
	}
	if value > 35000 {
		t.Fatalf("expected a crashed revenue value on the incident day, got %f", value)
	}
}

func TestGenerateWithoutIncidents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Incidents = nil
	dataset := Generate(cfg)

	for _, ev := range dataset.Events {
		if ev.Risk == models.RiskHigh {
			t.Fatalf("no high-risk events expected, got %+v", ev)
		}
	}
	for _, p := range dataset.Revenue.Points {
		if p.Value < 40000 {
			t.Fatalf("unexpected crash-level revenue %f at %s", p.Value, p.Date)
		}
	}
}
