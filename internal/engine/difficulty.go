package engine

import (
	"math"

	"github.com/5hiel/artistic-minds-sub002/internal/profile"
)

// TargetDifficulty computes the difficulty the next puzzle should be
// generated at. The result always lands in [0.1, 0.9] and respects the
// detector's cap, the configured global cap, and the early-stage safety caps.
func TargetDifficulty(p profile.Profile, c Characteristics, t Tuning) float64 {
	var d float64

	switch {
	case p.TotalPuzzlesSolved <= t.NewUserThreshold:
		d = math.Min(t.NewUserMax, p.SkillLevel)

	case p.OverallAccuracy < t.StrugglingAccuracy:
		d = math.Min(t.StrugglingMax, p.SkillLevel)

	default:
		d = blend(p, c, t)
	}

	// Clamp chain: absolute range, detector cap, configured cap, then the
	// early-stage hard caps.
	d = clamp(d, 0.1, 0.9)
	d = math.Min(d, c.MaxDifficulty)
	d = math.Min(d, t.GlobalMaxDifficulty)
	if c.Stage == StageEarly {
		limit := t.EarlyStageCap
		if p.TotalPuzzlesSolved <= t.VeryEarlyLimit {
			limit = t.VeryEarlyCap
		}
		d = math.Min(d, limit)
	}
	return math.Max(d, 0.1)
}

// blend mixes capability, engagement, and recent performance. Weights shift
// with the detected stage: early users are driven mostly by capability,
// everyone else mostly by engagement.
func blend(p profile.Profile, c Characteristics, t Tuning) float64 {
	base := p.SkillLevel
	recent := p.RecentAccuracy(t.RecentDefault)

	engAdj := 0.0
	switch {
	case p.EngagementAvg < t.LowEngagement:
		engAdj = -0.2
	case p.EngagementAvg > t.HighEngagement && recent > 0.6:
		engAdj = 0.1
	}

	perfAdj := 0.0
	switch {
	case recent > 0.8:
		perfAdj = 0.05
	case recent < 0.4:
		perfAdj = -0.05
	}

	wCap, wEng := 0.4, 0.5
	if c.Stage == StageEarly {
		wCap, wEng = 0.7, 0.2
	}
	wPerf := 1.0 - wCap - wEng

	return wCap*base + wEng*clamp(base+engAdj, 0, 1) + wPerf*clamp(base+perfAdj, 0, 1)
}
