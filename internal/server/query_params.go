package server

import (
	"errors"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalTime(value string, endOfDay bool) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		}
		return parsed, nil
	}
	return time.Time{}, errors.New("invalid_time")
}

func parseRequiredDate(value string) (time.Time, error) {
	parsed, err := parseOptionalTime(value, false)
	if err != nil || parsed.IsZero() {
		return time.Time{}, errors.New("invalid_time")
	}
	return parsed, nil
}
