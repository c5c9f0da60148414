package models

import (
	"math"
	"strings"
	"time"
)

// timestampLayouts lists the accepted start/end formats. The last two are the
// zone-less forms a datetime-local input emits; they are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a submitted start or end instant.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ComputeHours returns the overtime duration between start and end in hours,
// rounded up to the next quarter hour. An end before start is treated as an
// overnight shift and moved forward by a day. Unparseable input yields 0.
func ComputeHours(start, end string) float64 {
	startAt, ok := ParseTimestamp(start)
	if !ok {
		return 0
	}
	endAt, ok := ParseTimestamp(end)
	if !ok {
		return 0
	}
	if endAt.Before(startAt) {
		endAt = endAt.Add(24 * time.Hour)
	}
	minutes := int64(endAt.Sub(startAt) / time.Minute)
	if minutes <= 0 {
		return 0
	}
	return RoundUpToQuarter(float64(minutes) / 60)
}

// RoundUpToQuarter rounds hours up to the nearest 0.25.
func RoundUpToQuarter(hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return math.Ceil(hours*4) / 4
}
