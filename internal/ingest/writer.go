package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

// reportHeader is the output schema: one row per detected crash.
var reportHeader = []string{
	"crash_date",
	"recovered_date",
	"candidate_source",
	"candidate_component",
	"lag_days",
	"daily_effect",
	"standard_error",
	"duration_days",
	"total_impact",
	"status",
	"confidence_note",
}

// WriteReports renders an analysis result as CSV, one row per crash.
// Nullable columns (recovered_date, candidate fields, standard_error) are
// left empty.
func WriteReports(w io.Writer, result models.AnalysisResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeader); err != nil {
		return utils.NewAppError("ingest", "write report header", err)
	}

	for _, report := range result.Reports {
		record := []string{
			utils.FormatDate(report.Crash.DetectedAt),
			"",
			"",
			"",
			"",
			"",
			"",
			strconv.Itoa(report.DurationDays),
			formatFloat(report.TotalImpact),
			string(report.Status),
			report.ConfidenceNote,
		}
		if report.Crash.RecoveredAt != nil {
			record[1] = utils.FormatDate(*report.Crash.RecoveredAt)
		}
		if report.Cause != nil {
			record[2] = string(report.Cause.Event.Source)
			record[3] = report.Cause.Event.Component
			record[4] = strconv.Itoa(report.Cause.LagDays)
		}
		if report.Estimate != nil {
			record[5] = formatFloat(report.Estimate.DailyEffect)
			if report.Estimate.StandardError != nil {
				record[6] = formatFloat(*report.Estimate.StandardError)
			}
		}
		if err := writer.Write(record); err != nil {
			return utils.NewAppError("ingest", "write report row", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteMetricSeries renders one or more series sharing a daily calendar as a
// wide CSV, one metric per column. All series must cover identical dates.
func WriteMetricSeries(w io.Writer, series ...models.MetricSeries) error {
	if len(series) == 0 {
		return utils.NewAppError("ingest", "write metrics", errNoSeries)
	}
	header := []string{"date"}
	for _, s := range series {
		header = append(header, s.Name)
		if s.Len() != series[0].Len() {
			return utils.NewAppError("ingest", "write metrics", errCalendarMismatch)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return utils.NewAppError("ingest", "write metrics header", err)
	}
	for i := 0; i < series[0].Len(); i++ {
		record := []string{utils.FormatDate(series[0].Points[i].Date)}
		for _, s := range series {
			record = append(record, formatFloat(s.Points[i].Value))
		}
		if err := writer.Write(record); err != nil {
			return utils.NewAppError("ingest", "write metrics row", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteEvents renders classified events in the schema ReadEvents accepts.
func WriteEvents(w io.Writer, events []models.ExternalEvent) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "source", "risk", "component", "description"}); err != nil {
		return utils.NewAppError("ingest", "write events header", err)
	}
	for _, event := range events {
		record := []string{
			event.Timestamp.UTC().Format(time.RFC3339),
			string(event.Source),
			string(event.Risk),
			event.Component,
			event.Description,
		}
		if err := writer.Write(record); err != nil {
			return utils.NewAppError("ingest", "write events row", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

var (
	errNoSeries         = errors.New("no series given")
	errCalendarMismatch = errors.New("series cover different calendars")
)
