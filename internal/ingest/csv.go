// Package ingest reads and writes the engine's tabular interchange formats:
// daily metric series, risk-classified event logs, and impact reports.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

// LoadMetricSeries reads a metric CSV with a `date` column and the named
// metric column. Ordering and duplicate violations surface as validation
// errors before any detection runs.
func LoadMetricSeries(path, metricColumn string) (models.MetricSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.MetricSeries{}, utils.NewAppError("ingest", "open metrics file", err)
	}
	defer f.Close()
	return ReadMetricSeries(f, metricColumn)
}

// ReadMetricSeries parses a metric series from CSV data.
func ReadMetricSeries(r io.Reader, metricColumn string) (models.MetricSeries, error) {
	if metricColumn == "" {
		return models.MetricSeries{}, &utils.ValidationError{Field: "metric", Msg: "metric column name required"}
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return models.MetricSeries{}, &utils.ValidationError{Field: "header", Msg: "missing header row"}
	}

	dateIdx, valueIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "date":
			dateIdx = i
		case strings.ToLower(metricColumn):
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return models.MetricSeries{}, &utils.ValidationError{Field: "date", Msg: "column not found"}
	}
	if valueIdx < 0 {
		return models.MetricSeries{}, &utils.ValidationError{Field: metricColumn, Msg: "column not found"}
	}

	series := models.MetricSeries{Name: metricColumn}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.MetricSeries{}, &utils.ValidationError{Field: "row", Row: row, Msg: err.Error()}
		}
		row++

		date, err := utils.ParseDate(record[dateIdx])
		if err != nil {
			return models.MetricSeries{}, &utils.ValidationError{Field: "date", Row: row, Msg: err.Error()}
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			return models.MetricSeries{}, &utils.ValidationError{Field: metricColumn, Row: row, Msg: "not a number: " + record[valueIdx]}
		}

		series.Points = append(series.Points, models.MetricPoint{Date: models.Day(date), Value: value})
	}

	if err := series.Validate(); err != nil {
		return models.MetricSeries{}, err
	}
	return series, nil
}

// LoadEvents reads a pre-classified event CSV with columns timestamp,
// source, risk, component, description.
func LoadEvents(path string) ([]models.ExternalEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError("ingest", "open events file", err)
	}
	defer f.Close()
	return ReadEvents(f)
}

// ReadEvents parses classified events from CSV data.
func ReadEvents(r io.Reader) ([]models.ExternalEvent, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, &utils.ValidationError{Field: "header", Msg: "missing header row"}
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, required := range []string{"timestamp", "source", "risk", "description"} {
		if _, ok := idx[required]; !ok {
			return nil, &utils.ValidationError{Field: required, Msg: "column not found"}
		}
	}

	var events []models.ExternalEvent
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &utils.ValidationError{Field: "row", Row: row, Msg: err.Error()}
		}
		row++

		ts, err := utils.ParseDate(record[idx["timestamp"]])
		if err != nil {
			return nil, &utils.ValidationError{Field: "timestamp", Row: row, Msg: err.Error()}
		}
		source, err := parseSource(record[idx["source"]])
		if err != nil {
			return nil, &utils.ValidationError{Field: "source", Row: row, Msg: err.Error()}
		}
		risk, err := parseRisk(record[idx["risk"]])
		if err != nil {
			return nil, &utils.ValidationError{Field: "risk", Row: row, Msg: err.Error()}
		}

		event := models.ExternalEvent{
			Timestamp:   ts,
			Source:      source,
			Risk:        risk,
			Description: strings.TrimSpace(record[idx["description"]]),
		}
		if i, ok := idx["component"]; ok {
			event.Component = strings.TrimSpace(record[i])
		}
		events = append(events, event)
	}

	return events, nil
}

func parseSource(value string) (models.EventSource, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "VCS":
		return models.SourceVCS, nil
	case "TICKET":
		return models.SourceTicket, nil
	case "CHAT":
		return models.SourceChat, nil
	case "CI":
		return models.SourceCI, nil
	}
	return "", fmt.Errorf("unknown source %q", value)
}

func parseRisk(value string) (models.RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		return models.RiskLow, nil
	case "HIGH":
		return models.RiskHigh, nil
	}
	return "", fmt.Errorf("unknown risk level %q", value)
}
