package schedule

// Adaptive controller policy, fixed by product rather than tuned
const (
	ComplianceWindow = 14
	RaiseThreshold   = 0.9
	LowerThreshold   = 0.7
	CadenceStep      = 0.5
	MinPostsPerWeek  = 1.0
	MaxPostsPerWeek  = 7.0
)

// HistoryEntry records whether a past slot was scheduled and whether it was posted
type HistoryEntry struct {
	Scheduled bool `json:"scheduled"`
	Posted    bool `json:"posted"`
}

// ComplianceRate returns posted/scheduled over the trailing window, with ok
// false when nothing was scheduled in it
func ComplianceRate(history []HistoryEntry) (rate float64, ok bool) {
	if len(history) > ComplianceWindow {
		history = history[len(history)-ComplianceWindow:]
	}
	scheduled, posted := 0, 0
	for _, h := range history {
		if !h.Scheduled {
			continue
		}
		scheduled++
		if h.Posted {
			posted++
		}
	}
	if scheduled == 0 {
		return 1, false
	}
	return float64(posted) / float64(scheduled), true
}

// AdjustCadence moves target by one step when the trailing compliance rate
// leaves the [LowerThreshold, RaiseThreshold) band
func AdjustCadence(target float64, history []HistoryEntry) float64 {
	rate, ok := ComplianceRate(history)
	if !ok {
		return target
	}
	switch {
	case rate >= RaiseThreshold:
		return clamp(target+CadenceStep, MinPostsPerWeek, MaxPostsPerWeek)
	case rate < LowerThreshold:
		return clamp(target-CadenceStep, MinPostsPerWeek, MaxPostsPerWeek)
	default:
		return target
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
