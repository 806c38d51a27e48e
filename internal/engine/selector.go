package engine

import (
	"fmt"
	"math"

	"github.com/5hiel/artistic-minds-sub002/internal/profile"
)

// Selection score weights: difficulty fit dominates, preference and track
// record split the rest.
const (
	weightDifficultyFit = 0.4
	weightPreference    = 0.3
	weightSuccessRate   = 0.3
)

// scoreCandidate rates one candidate against the live profile.
func scoreCandidate(r Recommendation, p profile.Profile) float64 {
	fit := math.Max(0, 1-math.Abs(r.DNA.Difficulty-p.SkillLevel))
	pref := 0.0
	if p.Prefers(r.DNA.Type) {
		pref = 1.0
	}
	return weightDifficultyFit*fit + weightPreference*pref + weightSuccessRate*r.DNA.SuccessRate
}

// selectBest picks the highest-scoring candidate, rewriting its reason and
// confidence from the winning score. Ties resolve to the first-seen
// candidate so selection stays stable across identical rounds.
func selectBest(candidates []Recommendation, p profile.Profile) (Recommendation, bool) {
	if len(candidates) == 0 {
		return Recommendation{}, false
	}

	best := 0
	bestScore := scoreCandidate(candidates[0], p)
	for i := 1; i < len(candidates); i++ {
		if s := scoreCandidate(candidates[i], p); s > bestScore {
			best, bestScore = i, s
		}
	}

	winner := candidates[best]
	winner.Confidence = clamp(bestScore, 0, 1)
	winner.Reason = fmt.Sprintf("selected %s: score %.2f (difficulty %.2f vs skill %.2f, preferred=%v, success %.2f)",
		winner.DNA.Type, bestScore, winner.DNA.Difficulty, p.SkillLevel, p.Prefers(winner.DNA.Type), winner.DNA.SuccessRate)
	return winner, true
}
