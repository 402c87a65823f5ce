package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// history builds n scheduled entries of which the first posted were posted
func history(n, posted int) []HistoryEntry {
	h := make([]HistoryEntry, n)
	for i := range h {
		h[i] = HistoryEntry{Scheduled: true, Posted: i < posted}
	}
	return h
}

func TestAdjustCadence_EmptyHistoryUnchanged(t *testing.T) {
	assert.Equal(t, 3.0, AdjustCadence(3.0, nil))
}

func TestAdjustCadence_NothingScheduledUnchanged(t *testing.T) {
	h := []HistoryEntry{{Posted: true}, {}, {}}
	assert.Equal(t, 3.0, AdjustCadence(3.0, h))
}

func TestAdjustCadence_NeutralBand(t *testing.T) {
	assert.Equal(t, 3.0, AdjustCadence(3.0, history(14, 12)))
	assert.Equal(t, 3.0, AdjustCadence(3.0, history(10, 7)))
}

func TestAdjustCadence_Raise(t *testing.T) {
	assert.Equal(t, 3.5, AdjustCadence(3.0, history(14, 13)))
	assert.Equal(t, 7.0, AdjustCadence(6.8, history(14, 14)))
}

func TestAdjustCadence_Lower(t *testing.T) {
	assert.Equal(t, 2.0, AdjustCadence(2.5, history(14, 5)))
	assert.Equal(t, 1.0, AdjustCadence(1.2, history(14, 0)))
}

func TestAdjustCadence_OnlyTrailingWindowCounts(t *testing.T) {
	// Ten old misses followed by fourteen posts: only the posts are inspected
	h := append(history(10, 0), history(14, 14)...)
	assert.Equal(t, 3.5, AdjustCadence(3.0, h))
}

func TestAdjustCadence_StaysInBounds(t *testing.T) {
	for posted := 0; posted <= 14; posted++ {
		for _, target := range []float64{1, 1.5, 2.5, 5, 7} {
			got := AdjustCadence(target, history(14, posted))
			assert.GreaterOrEqual(t, got, MinPostsPerWeek)
			assert.LessOrEqual(t, got, MaxPostsPerWeek)
		}
	}
}
