package profile

import "time"

// Profile is the single mutable user state driving puzzle selection. It is
// owned exclusively by the Manager and persisted as one JSON blob in the
// app-state store after every mutation.
type Profile struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	// Aggregate counters.
	TotalSessions      int     `json:"total_sessions"`
	TotalPuzzlesSolved int     `json:"total_puzzles_solved"`
	OverallAccuracy    float64 `json:"overall_accuracy"` // running mean, 0–1

	// Adaptive state.
	SkillLevel        float64  `json:"skill_level"`    // 0–1
	MaxDifficulty     float64  `json:"max_difficulty"` // ceiling derived from skill
	RecentPerformance []bool   `json:"recent_performance"`
	EngagementAvg     float64  `json:"engagement_avg"` // EWMA, 0–1
	EngagementSamples int      `json:"engagement_samples"`
	PreferredTypes    []string `json:"preferred_types"` // insertion-order, capped

	// Session-local counters carried opaquely for the presentation layer.
	GameScore int            `json:"game_score"`
	PowerUps  map[string]int `json:"power_ups,omitempty"`
}

// RecentAccuracy returns the fraction of successes in the recent-performance
// window, or fallback when the window is empty.
func (p Profile) RecentAccuracy(fallback float64) float64 {
	if len(p.RecentPerformance) == 0 {
		return fallback
	}
	wins := 0
	for _, ok := range p.RecentPerformance {
		if ok {
			wins++
		}
	}
	return float64(wins) / float64(len(p.RecentPerformance))
}

// RecentFailures returns the number of failures in the recent window.
func (p Profile) RecentFailures() int {
	failures := 0
	for _, ok := range p.RecentPerformance {
		if !ok {
			failures++
		}
	}
	return failures
}

// Prefers reports whether typeName is in the preferred set.
func (p Profile) Prefers(typeName string) bool {
	for _, t := range p.PreferredTypes {
		if t == typeName {
			return true
		}
	}
	return false
}

// SessionContext tracks per-session counters. Created on session start,
// discarded on app close or reset; never persisted as part of the profile.
type SessionContext struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	PuzzlesSolved int       `json:"puzzles_solved"`
	Accuracy      float64   `json:"accuracy"`
	Engagement    float64   `json:"engagement"`
}
