package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_UsesLocation(t *testing.T) {
	instant := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	assert.Equal(t, "2024-03-09", Key(instant, time.UTC))
	assert.Equal(t, "2024-03-10", Key(instant, tokyo))
	assert.Equal(t, "2024-03-09", Key(instant, nil))
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2024-01-01", "2024-01-01", 0},
		{"2024-01-01", "2024-01-08", 7},
		{"2024-01-08", "2024-01-01", -7},
		{"2024-02-28", "2024-03-01", 2},
		{"2023-12-31", "2024-01-01", 1},
	}
	for _, tt := range tests {
		got, err := DaysBetween(tt.from, tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}

	_, err := DaysBetween("garbage", "2024-01-01")
	assert.Error(t, err)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 0, FloorDiv(6, 7))
	assert.Equal(t, 1, FloorDiv(7, 7))
	assert.Equal(t, -1, FloorDiv(-1, 7))
	assert.Equal(t, -1, FloorDiv(-7, 7))
	assert.Equal(t, -2, FloorDiv(-8, 7))
}

func TestAt(t *testing.T) {
	got, err := At("2024-01-01", "23:59", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC), got)

	_, err = At("2024-01-01", "25:00", time.UTC)
	assert.Error(t, err)
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{
		"2024-02-25", "2024-02-26", "2024-02-27", "2024-02-28",
		"2024-02-29", "2024-03-01", "2024-03-02",
	}, LastDays(now, time.UTC, 7))
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, 1, Weekday(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, 0, Weekday(time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC), time.UTC))
	assert.True(t, Valid("2024-02-29"))
	assert.False(t, Valid("2023-02-29"))
}
