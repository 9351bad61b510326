package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate accepts ISO-8601 values at day or second granularity and returns
// the parsed time in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unsupported format", value)
}

// FormatDate renders a time as an ISO-8601 day.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
