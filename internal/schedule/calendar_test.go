package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekWindow_Unbounded(t *testing.T) {
	release := date(2026, 11, 2)

	w := WeekWindow(release, 2, 8, nil)

	assert.Equal(t, date(2026, 10, 19), w.Start)
	assert.Equal(t, date(2026, 12, 28), w.End)
	assert.False(t, w.Clipped)
	assert.True(t, w.Contains(w.End))
}

func TestWeekWindow_NextReleaseClipsTail(t *testing.T) {
	release := date(2026, 11, 2)
	next := release.AddDate(0, 0, 20)

	w := WeekWindow(release, 2, 8, &next)

	assert.Equal(t, date(2026, 11, 8), w.End)
	assert.True(t, w.Clipped)
	assert.False(t, w.Contains(w.End))
	assert.True(t, w.Contains(w.End.AddDate(0, 0, -1)))
}

func TestWeekWindow_DistantNextReleaseDoesNotExtend(t *testing.T) {
	release := date(2026, 11, 2)
	next := release.AddDate(0, 0, 200)

	w := WeekWindow(release, 2, 8, &next)

	assert.Equal(t, date(2026, 12, 28), w.End)
	assert.False(t, w.Clipped)
}

func TestWeekWindow_NextReleaseBeforeLookback(t *testing.T) {
	release := date(2026, 11, 2)
	next := release.AddDate(0, 0, -3)

	w := WeekWindow(release, 2, 8, &next)

	assert.True(t, w.End.Before(w.Start))
	assert.Equal(t, 0, w.Days())
	assert.False(t, w.Contains(w.Start))

	same := release
	w = WeekWindow(release, 2, 8, &same)
	assert.Equal(t, w.Start, w.End)
	assert.False(t, w.Contains(w.Start))
}

func TestSnapToOptimalDay(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2026, 10, 12), date(2026, 10, 13)}, // Monday -> Tuesday
		{date(2026, 10, 13), date(2026, 10, 13)},
		{date(2026, 10, 14), date(2026, 10, 15)}, // Wednesday -> Thursday
		{date(2026, 10, 15), date(2026, 10, 15)},
		{date(2026, 10, 16), date(2026, 10, 16)},
		{date(2026, 10, 17), date(2026, 10, 16)}, // Saturday -> Friday
		{date(2026, 10, 18), date(2026, 10, 16)}, // Sunday -> Friday
	}

	for _, tt := range tests {
		t.Run(tt.in.Weekday().String(), func(t *testing.T) {
			got := SnapToOptimalDay(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsOptimalDay(got))
		})
	}
}

func TestSnapToOptimalDay_AlwaysLandsOnPostingDay(t *testing.T) {
	start := date(2026, 1, 1)
	for i := 0; i < 365; i++ {
		d := start.AddDate(0, 0, i)
		got := SnapToOptimalDay(d)
		require.True(t, IsOptimalDay(got), "date %s snapped to %s", d, got)
		if IsOptimalDay(d) {
			require.Equal(t, d, got)
		}
	}
}

func TestWeekLabel(t *testing.T) {
	release := date(2026, 11, 2)

	assert.Equal(t, "Week -2", WeekLabel(date(2026, 10, 20), release))
	assert.Equal(t, "Week -1", WeekLabel(date(2026, 10, 27), release))
	assert.Equal(t, "Release Week", WeekLabel(release, release))
	assert.Equal(t, "Release Week", WeekLabel(date(2026, 11, 5), release))
	assert.Equal(t, "Week +3", WeekLabel(date(2026, 11, 23), release))
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	in := time.Date(2026, 10, 15, 23, 30, 0, 0, loc)

	assert.Equal(t, date(2026, 10, 15), DateOf(in))
}
