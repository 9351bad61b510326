package models

import (
	"testing"
	"time"
)

func seriesOn(days ...int) MetricSeries {
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	s := MetricSeries{Name: "daily_revenue"}
	for i, d := range days {
		s.Points = append(s.Points, MetricPoint{Date: start.AddDate(0, 0, d), Value: float64(i)})
	}
	return s
}

func TestValidateAcceptsAscendingSeries(t *testing.T) {
	if err := seriesOn(0, 1, 2, 5).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsShortSeries(t *testing.T) {
	if err := seriesOn(0).Validate(); err == nil {
		t.Fatalf("expected error on a single point")
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	if err := seriesOn(0, 1, 1).Validate(); err == nil {
		t.Fatalf("expected error on duplicate dates")
	}
}

func TestValidateRejectsDescending(t *testing.T) {
	if err := seriesOn(0, 2, 1).Validate(); err == nil {
		t.Fatalf("expected error on descending dates")
	}
}

func TestDayTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2024, 10, 2, 3, 30, 0, 0, loc)
	want := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	if got := Day(ts); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 10, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 10, 4, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 3 {
		t.Fatalf("expected 3 days, got %d", got)
	}
	if got := DaysBetween(b, a); got != -3 {
		t.Fatalf("expected -3 days, got %d", got)
	}
}

func TestValueAt(t *testing.T) {
	s := seriesOn(0, 1, 2)
	day := time.Date(2024, 10, 2, 18, 0, 0, 0, time.UTC)
	v, ok := s.ValueAt(day)
	if !ok || v != 1 {
		t.Fatalf("expected value 1, got %f (found=%v)", v, ok)
	}
	if _, ok := s.ValueAt(day.AddDate(0, 0, 10)); ok {
		t.Fatalf("expected miss for absent day")
	}
}
