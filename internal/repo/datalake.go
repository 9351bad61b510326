// Package repo integrates with the external data-lake service that serves
// business metric series and pre-classified engineering events.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/causalstack/causal-sentinel/internal/cache"
	"github.com/causalstack/causal-sentinel/internal/models"
)

// DataLakeClient wraps the data-lake HTTP API. Responses for identical time
// windows are served through the cache provider when one is configured.
type DataLakeClient struct {
	baseURL     string
	metricsPath string
	eventsPath  string
	httpClient  *http.Client
	cache       cache.Provider
	cacheTTL    time.Duration
}

// NewDataLakeClient constructs a client targeting the configured data lake.
func NewDataLakeClient(baseURL, metricsPath, eventsPath string, timeout time.Duration, provider cache.Provider, cacheTTL time.Duration) *DataLakeClient {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &DataLakeClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		metricsPath: metricsPath,
		eventsPath:  eventsPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    provider,
		cacheTTL: cacheTTL,
	}
}

// FetchMetricSeries queries the data lake for a named daily metric.
func (c *DataLakeClient) FetchMetricSeries(ctx context.Context, metric string, start, end time.Time) (models.MetricSeries, error) {
	if c == nil {
		return models.MetricSeries{}, fmt.Errorf("data-lake client not initialised")
	}
	if c.baseURL == "" {
		return models.MetricSeries{}, fmt.Errorf("data-lake base URL not configured")
	}

	payload := map[string]interface{}{
		"metric": metric,
		"start":  start.Format(time.RFC3339),
		"end":    end.Format(time.RFC3339),
	}

	var response struct {
		Series []struct {
			Date  time.Time `json:"date"`
			Value float64   `json:"value"`
		} `json:"series"`
	}

	key := fmt.Sprintf("datalake:metrics:%s:%d:%d", metric, start.Unix(), end.Unix())
	if err := c.cachedPostJSON(ctx, key, c.resolvePath(c.metricsPath), payload, &response); err != nil {
		return models.MetricSeries{}, fmt.Errorf("data-lake metrics request failed: %w", err)
	}

	series := models.MetricSeries{Name: metric}
	for _, sample := range response.Series {
		series.Points = append(series.Points, models.MetricPoint{
			Date:  models.Day(sample.Date),
			Value: sample.Value,
		})
	}
	if series.Len() == 0 {
		return models.MetricSeries{}, fmt.Errorf("data-lake metrics returned no samples")
	}
	return series, nil
}

// FetchEvents queries the data lake for risk-classified events in a window.
func (c *DataLakeClient) FetchEvents(ctx context.Context, start, end time.Time) ([]models.ExternalEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("data-lake client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("data-lake base URL not configured")
	}

	payload := map[string]interface{}{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	}

	var response struct {
		Events []struct {
			Timestamp   time.Time `json:"timestamp"`
			Source      string    `json:"source"`
			Risk        string    `json:"risk"`
			Component   string    `json:"component"`
			Description string    `json:"description"`
		} `json:"events"`
	}

	key := fmt.Sprintf("datalake:events:%d:%d", start.Unix(), end.Unix())
	if err := c.cachedPostJSON(ctx, key, c.resolvePath(c.eventsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("data-lake events request failed: %w", err)
	}

	events := make([]models.ExternalEvent, 0, len(response.Events))
	for _, e := range response.Events {
		events = append(events, models.ExternalEvent{
			Timestamp:   e.Timestamp,
			Source:      models.EventSource(strings.ToUpper(e.Source)),
			Risk:        models.RiskLevel(strings.ToUpper(e.Risk)),
			Component:   e.Component,
			Description: e.Description,
		})
	}
	return events, nil
}

func (c *DataLakeClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// cachedPostJSON serves out from the cache when possible, falling back to a
// POST round trip and populating the cache on success.
func (c *DataLakeClient) cachedPostJSON(ctx context.Context, key, endpoint string, payload, out any) error {
	if cached, err := c.cache.Get(ctx, key); err == nil {
		return json.Unmarshal(cached, out)
	}

	raw, err := c.postJSON(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	_ = c.cache.Set(ctx, key, raw, c.cacheTTL)
	return nil
}

func (c *DataLakeClient) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data lake returned %s", resp.Status)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return buf.Bytes(), nil
}
