package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is matched by every configuration rejection
var ErrInvalidConfig = errors.New("invalid schedule configuration")

// ConfigError describes why a schedule configuration was rejected
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid schedule configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Platform is a posting destination
type Platform string

const (
	PlatformTikTok        Platform = "tiktok"
	PlatformInstagramReel Platform = "instagram_reels"
	PlatformYouTubeShorts Platform = "youtube_shorts"
	PlatformInstagram     Platform = "instagram"
	PlatformFacebook      Platform = "facebook"
	PlatformTwitter       Platform = "twitter"
	PlatformThreads       Platform = "threads"
	PlatformYouTube       Platform = "youtube"
)

// Preferred weekly rates per platform class
const (
	ShortFormRate  = 5.0
	MediumFormRate = 2.5
	LongFormRate   = 1.5
)

var platformRates = map[Platform]float64{
	PlatformTikTok:        ShortFormRate,
	PlatformInstagramReel: ShortFormRate,
	PlatformYouTubeShorts: ShortFormRate,
	PlatformInstagram:     MediumFormRate,
	PlatformFacebook:      MediumFormRate,
	PlatformTwitter:       MediumFormRate,
	PlatformThreads:       MediumFormRate,
	PlatformYouTube:       LongFormRate,
}

// ParsePlatform normalizes a user supplied platform name
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case "reels":
		p = PlatformInstagramReel
	case "shorts":
		p = PlatformYouTubeShorts
	case "x":
		p = PlatformTwitter
	}
	if _, ok := platformRates[p]; !ok {
		return "", &ConfigError{Field: "platforms", Reason: fmt.Sprintf("contains unknown platform %q", name)}
	}
	return p, nil
}

// BudgetTier buckets how much time the artist can spend on content per week
type BudgetTier string

const (
	BudgetUnset    BudgetTier = ""
	BudgetLow      BudgetTier = "low"
	BudgetMedium   BudgetTier = "medium"
	BudgetHigh     BudgetTier = "high"
	BudgetVeryHigh BudgetTier = "very_high"
)

// Capacity returns the approximate posts per week the tier can sustain,
// treating an unset tier as low
func (t BudgetTier) Capacity() (float64, error) {
	switch t {
	case BudgetUnset, BudgetLow:
		return 1.5, nil
	case BudgetMedium:
		return 2.5, nil
	case BudgetHigh:
		return 4, nil
	case BudgetVeryHigh:
		return 6, nil
	default:
		return 0, &ConfigError{Field: "time_budget", Reason: fmt.Sprintf("has unknown tier %q", string(t))}
	}
}

// TierForHours buckets a raw weekly hour count
func TierForHours(hours float64) BudgetTier {
	switch {
	case hours <= 0:
		return BudgetUnset
	case hours <= 3:
		return BudgetLow
	case hours <= 6:
		return BudgetMedium
	case hours <= 10:
		return BudgetHigh
	default:
		return BudgetVeryHigh
	}
}

// PlatformCeiling returns the highest preferred rate among the platforms
func PlatformCeiling(platforms []Platform) (float64, error) {
	if len(platforms) == 0 {
		return 0, &ConfigError{Field: "platforms", Reason: "must not be empty"}
	}
	ceiling := 0.0
	for _, p := range platforms {
		rate, ok := platformRates[p]
		if !ok {
			return 0, &ConfigError{Field: "platforms", Reason: fmt.Sprintf("contains unknown platform %q", string(p))}
		}
		if rate > ceiling {
			ceiling = rate
		}
	}
	return ceiling, nil
}

// TargetPostsPerWeek is the platform ceiling clipped by the budget capacity,
// left unrounded
func TargetPostsPerWeek(platforms []Platform, budget BudgetTier) (float64, error) {
	ceiling, err := PlatformCeiling(platforms)
	if err != nil {
		return 0, err
	}
	capacity, err := budget.Capacity()
	if err != nil {
		return 0, err
	}
	if capacity < ceiling {
		return capacity, nil
	}
	return ceiling, nil
}
