package schedule

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// Window is the date range a schedule is generated over. When Clipped is set
// the end came from a following release's lookback boundary, and dates on
// End itself belong to that release
type Window struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Clipped bool      `json:"clipped"`
}

// Contains reports whether d falls inside the window
func (w Window) Contains(d time.Time) bool {
	d = DateOf(d)
	if d.Before(w.Start) {
		return false
	}
	if w.Clipped {
		return d.Before(w.End)
	}
	return !d.After(w.End)
}

// Days returns the number of days between start and end, never negative
func (w Window) Days() int {
	days := DaysBetween(w.Start, w.End)
	if days < 0 {
		return 0
	}
	return days
}

// DateOf truncates t to its calendar date at midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOf(b).Sub(DateOf(a)).Hours() / 24))
}

// AddDays shifts a calendar date by n days
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}

// WeekWindow computes the promotion window around a release
//
// The end is the earlier of release+weeksAfter and hardEnd-weeksBefore, so a
// following release keeps its own pre-release weeks
func WeekWindow(release time.Time, weeksBefore, weeksAfter int, hardEnd *time.Time) Window {
	release = DateOf(release)
	w := Window{
		Start: AddDays(release, -7*weeksBefore),
		End:   AddDays(release, 7*weeksAfter),
	}
	if hardEnd != nil {
		boundary := AddDays(*hardEnd, -7*weeksBefore)
		if !boundary.After(w.End) {
			w.End = boundary
			w.Clipped = true
		}
	}
	return w
}

// snapShift is the fixed optimal-posting-day policy: Tuesday, Thursday and
// Friday stay put, everything else moves to the nearest of them
var snapShift = map[time.Weekday]int{
	time.Sunday:    -2,
	time.Monday:    1,
	time.Tuesday:   0,
	time.Wednesday: 1,
	time.Thursday:  0,
	time.Friday:    0,
	time.Saturday:  -1,
}

// SnapToOptimalDay moves a date onto Tuesday, Thursday or Friday
func SnapToOptimalDay(d time.Time) time.Time {
	d = DateOf(d)
	return AddDays(d, snapShift[d.Weekday()])
}

// IsOptimalDay reports whether d is one of the posting days
func IsOptimalDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Tuesday, time.Thursday, time.Friday:
		return true
	default:
		return false
	}
}

// WeekOffset returns the whole-week offset of d relative to release
func WeekOffset(d, release time.Time) int {
	return int(math.Round(float64(DaysBetween(release, d)) / 7))
}

// WeekLabel renders the week offset, e.g. "Week -2", "Release Week", "Week +3"
func WeekLabel(d, release time.Time) string {
	offset := WeekOffset(d, release)
	switch {
	case offset < 0:
		return fmt.Sprintf("Week %d", offset)
	case offset == 0:
		return "Release Week"
	default:
		return fmt.Sprintf("Week +%d", offset)
	}
}

// nextWeekStart returns the Monday after d
func nextWeekStart(d time.Time) time.Time {
	shift := (8 - int(d.Weekday())) % 7
	if shift == 0 {
		shift = 7
	}
	return AddDays(d, shift)
}
