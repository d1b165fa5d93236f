package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak(t *testing.T) {
	now := time.Date(2025, time.June, 10, 18, 30, 0, 0, time.UTC)
	day := func(offset, hour int) time.Time {
		return time.Date(2025, time.June, 10+offset, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{name: "no completions", dates: nil, want: 0},
		{name: "only today", dates: []time.Time{day(0, 7)}, want: 1},
		{name: "today missing", dates: []time.Time{day(-1, 7), day(-2, 7)}, want: 0},
		{name: "three consecutive days", dates: []time.Time{day(0, 7), day(-1, 20), day(-2, 1)}, want: 3},
		{name: "same day counted once", dates: []time.Time{day(0, 6), day(0, 7), day(0, 8), day(-1, 9)}, want: 2},
		{name: "gap ends the streak", dates: []time.Time{day(0, 7), day(-1, 7), day(-3, 7), day(-4, 7)}, want: 2},
		{name: "unsorted input", dates: []time.Time{day(-2, 7), day(0, 7), day(-1, 7)}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.dates, now, time.UTC))
		})
	}
}

func TestComputeStreakUsesCalendarDaysOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on June 9 is already June 10 at UTC+3.
	now := time.Date(2025, time.June, 10, 8, 0, 0, 0, loc)
	completions := []time.Time{
		time.Date(2025, time.June, 9, 22, 30, 0, 0, time.UTC),
		time.Date(2025, time.June, 9, 10, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, 2, ComputeStreak(completions, now, loc))
	assert.Equal(t, 0, ComputeStreak(completions, now.In(time.UTC).Add(24*time.Hour), time.UTC))
}

func TestBuckets(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, time.June, 9, 10, 0, 0, 0, time.UTC),  // Monday
		time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC), // Monday
		time.Date(2025, time.July, 6, 10, 0, 0, 0, time.UTC),  // Sunday
	}

	weekdays := WeekdayBuckets(dates, time.UTC)
	assert.Equal(t, 2, weekdays[time.Monday])
	assert.Equal(t, 1, weekdays[time.Sunday])

	months := MonthBuckets(dates, time.UTC)
	assert.Equal(t, 2, months[time.June-1])
	assert.Equal(t, 1, months[time.July-1])

	assert.Equal(t, 2, CountSince(dates, time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC)))
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2025, time.June, 15, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.UTC))

	monday := time.Date(2025, time.June, 16, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC), StartOfWeek(monday, time.UTC))
}
