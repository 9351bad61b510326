package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/causalstack/causal-sentinel/internal/cache"
	"github.com/causalstack/causal-sentinel/internal/engine"
	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/services"
	"github.com/causalstack/causal-sentinel/internal/synth"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	pipeline := engine.NewPipeline(nil, models.AnalysisConfig{})
	analyzer := services.NewAnalyzer(nil, pipeline, cache.NewMemoryProvider(), time.Minute)
	server := NewServer(":0", analyzer, nil)
	ts := httptest.NewServer(server.http.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := testServer(t)

	dataset := synth.Generate(synth.DefaultConfig())
	body, err := json.Marshal(models.AnalysisRequest{
		Series: dataset.Revenue,
		Events: dataset.Events,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(ts.URL+"/api/v1/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result models.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if result.Metric != "daily_revenue" {
		t.Fatalf("unexpected metric %q", result.Metric)
	}
	if len(result.Reports) == 0 {
		t.Fatalf("expected reports for the synthetic incident")
	}
}

func TestAnalyzeEndpointRejectsMalformedBody(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/analyze", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeEndpointRejectsInvalidSeries(t *testing.T) {
	ts := testServer(t)

	body, _ := json.Marshal(models.AnalysisRequest{
		Series: models.MetricSeries{Name: "daily_revenue"},
	})
	resp, err := http.Post(ts.URL+"/api/v1/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid series, got %d", resp.StatusCode)
	}

	var errBody errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Error == "" {
		t.Fatalf("expected an error message")
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
