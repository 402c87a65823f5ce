package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Builder policy
const (
	WeeksBeforeRelease   = 2
	WeeksAfterRelease    = 8
	MaxSlotsPerCycle     = 8
	DefaultSuggestedTime = "14:00"
)

var slotNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("multiverse/schedule-slots"))

// Config is the immutable input to Build
type Config struct {
	ReleaseDate     time.Time      `json:"release_date"`
	NextReleaseDate *time.Time     `json:"next_release_date,omitempty"`
	Platforms       []Platform     `json:"platforms"`
	TimeBudget      BudgetTier     `json:"time_budget,omitempty"`
	PostingHistory  []HistoryEntry `json:"posting_history,omitempty"`
}

// Slot is one planned posting opportunity
type Slot struct {
	ID            string    `json:"id"`
	PostingDate   time.Time `json:"posting_date"`
	WeekLabel     string    `json:"week_label"`
	Position      int       `json:"position"`
	Platform      Platform  `json:"platform"`
	SuggestedTime string    `json:"suggested_time"`
}

// Schedule is the output of Build
type Schedule struct {
	Window        Window  `json:"window"`
	DurationWeeks int     `json:"duration_weeks"`
	BaseCadence   float64 `json:"base_cadence"`
	Cadence       float64 `json:"cadence"`
	TotalSlots    int     `json:"total_slots"`
	Slots         []Slot  `json:"slots"`
}

func (c Config) validate() error {
	if c.ReleaseDate.IsZero() {
		return &ConfigError{Field: "release_date", Reason: "is required"}
	}
	if len(c.Platforms) == 0 {
		return &ConfigError{Field: "platforms", Reason: "must not be empty"}
	}
	return nil
}

// Build turns a release configuration into a dated slot sequence. It is
// pure, so identical configs always yield identical schedules
func Build(cfg Config) (*Schedule, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	base, err := TargetPostsPerWeek(cfg.Platforms, cfg.TimeBudget)
	if err != nil {
		return nil, err
	}
	cadence := AdjustCadence(base, cfg.PostingHistory)

	release := DateOf(cfg.ReleaseDate)
	window := WeekWindow(release, WeeksBeforeRelease, WeeksAfterRelease, cfg.NextReleaseDate)
	weeks := window.Days() / 7

	total := 0
	if weeks > 0 {
		total = int(math.Ceil(cadence * float64(weeks)))
		if total > MaxSlotsPerCycle {
			total = MaxSlotsPerCycle
		}
	}

	platform := cfg.Platforms[0]
	dates := slotDates(window, cadence, total)
	slots := make([]Slot, 0, len(dates))
	for i, d := range dates {
		slots = append(slots, Slot{
			ID:            slotID(release, platform, d),
			PostingDate:   d,
			WeekLabel:     WeekLabel(d, release),
			Position:      i + 1,
			Platform:      platform,
			SuggestedTime: DefaultSuggestedTime,
		})
	}

	return &Schedule{
		Window:        window,
		DurationWeeks: weeks,
		BaseCadence:   base,
		Cadence:       cadence,
		TotalSlots:    total,
		Slots:         slots,
	}, nil
}

// slotDates walks the window a day at a time, taking posting days until the
// current ISO week holds its share, then skipping to the next week
func slotDates(window Window, cadence float64, total int) []time.Time {
	perWeek := int(math.Ceil(cadence))
	if perWeek < 1 || total == 0 {
		return nil
	}

	dates := make([]time.Time, 0, total)
	var year, week, taken int
	for d := window.Start; len(dates) < total && window.Contains(d); {
		if !IsOptimalDay(d) {
			d = AddDays(d, 1)
			continue
		}
		y, w := d.ISOWeek()
		if y != year || w != week {
			year, week, taken = y, w, 0
		}
		dates = append(dates, d)
		taken++
		if taken >= perWeek {
			d = nextWeekStart(d)
			continue
		}
		d = AddDays(d, 1)
	}
	return dates
}

func slotID(release time.Time, platform Platform, d time.Time) string {
	key := fmt.Sprintf("%s|%s|%s", release.Format(time.DateOnly), platform, d.Format(time.DateOnly))
	return uuid.NewSHA1(slotNamespace, []byte(key)).String()
}
