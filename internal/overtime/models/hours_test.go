package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeHours(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		want       float64
	}{
		{"explicit next-day end", "2024-01-01T22:00:00Z", "2024-01-02T00:00:00Z", 2.0},
		{"overnight wrap on same date", "2024-01-01T23:50:00Z", "2024-01-01T00:05:00Z", 0.25},
		{"one minute rounds up", "2024-01-01T10:00:00Z", "2024-01-01T10:01:00Z", 0.25},
		{"sixty-one minutes", "2024-01-01T10:00:00Z", "2024-01-01T11:01:00Z", 1.25},
		{"exact four hours", "2024-03-10T18:00:00+07:00", "2024-03-10T22:00:00+07:00", 4.0},
		{"fractional seconds", "2024-01-01T10:00:00.500Z", "2024-01-01T10:30:00.500Z", 0.5},
		{"datetime-local form", "2024-01-01T18:00", "2024-01-01T20:10", 2.25},
		{"sub-minute difference floors to zero", "2024-01-01T10:00:00Z", "2024-01-01T10:00:59Z", 0},
		{"equal instants", "2024-01-01T10:00:00Z", "2024-01-01T10:00:00Z", 0},
		{"unparseable start", "yesterday", "2024-01-01T10:00:00Z", 0},
		{"unparseable end", "2024-01-01T10:00:00Z", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ComputeHours(tc.start, tc.end), 1e-9)
		})
	}
}

func TestComputeHoursRoundsUpToQuarter(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for minutes := 1; minutes <= 24*60; minutes += 7 {
		end := start.Add(time.Duration(minutes) * time.Minute)
		got := ComputeHours(start.Format(time.RFC3339), end.Format(time.RFC3339))
		raw := float64(minutes) / 60

		assert.GreaterOrEqual(t, got, raw, "minutes=%d", minutes)
		assert.Less(t, got-raw, 0.25, "minutes=%d", minutes)
		assert.InDelta(t, 0, math.Mod(got*4, 1), 1e-9, "minutes=%d", minutes)
	}
}

func TestRoundUpToQuarter(t *testing.T) {
	assert.Equal(t, 0.0, RoundUpToQuarter(0))
	assert.Equal(t, 0.0, RoundUpToQuarter(-1))
	assert.Equal(t, 0.25, RoundUpToQuarter(0.01))
	assert.Equal(t, 1.0, RoundUpToQuarter(1))
	assert.Equal(t, 1.5, RoundUpToQuarter(1.3))
}
