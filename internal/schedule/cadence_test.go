package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetPostsPerWeek(t *testing.T) {
	tests := []struct {
		name      string
		platforms []Platform
		budget    BudgetTier
		want      float64
	}{
		{"tiktok clipped by medium budget", []Platform{PlatformTikTok}, BudgetMedium, 2.5},
		{"tiktok with very high budget", []Platform{PlatformTikTok}, BudgetVeryHigh, 5},
		{"youtube below budget", []Platform{PlatformYouTube}, BudgetHigh, 1.5},
		{"mix uses fastest platform", []Platform{PlatformYouTube, PlatformInstagram, PlatformTikTok}, BudgetHigh, 4},
		{"missing budget is conservative", []Platform{PlatformTikTok}, BudgetUnset, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetPostsPerWeek(tt.platforms, tt.budget)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTargetPostsPerWeek_Rejections(t *testing.T) {
	_, err := TargetPostsPerWeek(nil, BudgetMedium)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = TargetPostsPerWeek([]Platform{"myspace"}, BudgetMedium)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = TargetPostsPerWeek([]Platform{PlatformTikTok}, BudgetTier("unlimited"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "time_budget", cfgErr.Field)
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" TikTok ")
	require.NoError(t, err)
	assert.Equal(t, PlatformTikTok, p)

	p, err = ParsePlatform("x")
	require.NoError(t, err)
	assert.Equal(t, PlatformTwitter, p)

	_, err = ParsePlatform("fax")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTierForHours(t *testing.T) {
	assert.Equal(t, BudgetUnset, TierForHours(0))
	assert.Equal(t, BudgetLow, TierForHours(2))
	assert.Equal(t, BudgetMedium, TierForHours(5))
	assert.Equal(t, BudgetHigh, TierForHours(8))
	assert.Equal(t, BudgetVeryHigh, TierForHours(20))
}
