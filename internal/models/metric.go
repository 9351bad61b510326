package models

import (
	"time"

	"github.com/causalstack/causal-sentinel/internal/utils"
)

// MetricPoint is a single daily observation of a business metric.
type MetricPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricSeries is an ordered daily time series for one named metric.
// Points must carry strictly increasing dates with no duplicates.
type MetricSeries struct {
	Name   string        `json:"name"`
	Points []MetricPoint `json:"points"`
}

// Len returns the number of points in the series.
func (s MetricSeries) Len() int { return len(s.Points) }

// ValueAt returns the value recorded for the given day, if present.
func (s MetricSeries) ValueAt(day time.Time) (float64, bool) {
	day = Day(day)
	for _, p := range s.Points {
		if p.Date.Equal(day) {
			return p.Value, true
		}
	}
	return 0, false
}

// Validate checks the series invariants: at least two points, strictly
// increasing day-granular dates, no duplicates. Violations are fatal for the
// whole analysis run.
func (s MetricSeries) Validate() error {
	if len(s.Points) < 2 {
		return &utils.ValidationError{Field: "series", Msg: "at least 2 points required"}
	}
	for i, p := range s.Points {
		if p.Date.IsZero() {
			return &utils.ValidationError{Field: "date", Row: i + 1, Msg: "missing date"}
		}
		if i == 0 {
			continue
		}
		prev, cur := Day(s.Points[i-1].Date), Day(p.Date)
		if cur.Equal(prev) {
			return &utils.ValidationError{Field: "date", Row: i + 1, Msg: "duplicate date " + cur.Format("2006-01-02")}
		}
		if cur.Before(prev) {
			return &utils.ValidationError{Field: "date", Row: i + 1, Msg: "dates must be ascending"}
		}
	}
	return nil
}

// Day truncates a timestamp to UTC midnight. All series arithmetic is
// day-granular.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
