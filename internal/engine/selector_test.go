package engine

import (
	"testing"

	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
)

func candidate(id, typeName string, difficulty, successRate float64) Recommendation {
	return Recommendation{
		Puzzle: &puzzle.Instance{ID: id, Type: typeName},
		DNA: dna.DNA{
			PuzzleID:    id,
			Type:        typeName,
			Difficulty:  difficulty,
			SuccessRate: successRate,
			Engagement:  0.7,
		},
	}
}

func TestSelectBestPrefersDifficultyFit(t *testing.T) {
	p := profile.Profile{SkillLevel: 0.5}
	candidates := []Recommendation{
		candidate("a", "pattern", 0.2, 0.6),
		candidate("b", "analogy", 0.5, 0.6),
		candidate("c", "number-series", 0.8, 0.6),
	}

	winner, ok := selectBest(candidates, p)
	if !ok {
		t.Fatal("expected a winner")
	}
	if winner.Puzzle.ID != "b" {
		t.Errorf("selected %q, want the best-fitting candidate b", winner.Puzzle.ID)
	}
}

func TestSelectBestPreferenceBump(t *testing.T) {
	p := profile.Profile{
		SkillLevel:     0.5,
		PreferredTypes: []string{"analogy"},
	}
	candidates := []Recommendation{
		candidate("a", "pattern", 0.5, 0.6),
		candidate("b", "analogy", 0.5, 0.6),
	}

	winner, ok := selectBest(candidates, p)
	if !ok {
		t.Fatal("expected a winner")
	}
	if winner.Puzzle.ID != "b" {
		t.Errorf("selected %q, want the preferred-type candidate b", winner.Puzzle.ID)
	}
}

// TestSelectBestFitOutweighsModestBonuses: preference plus success carry at
// most 0.6 combined weight, so a candidate far off the skill level loses to
// a perfect fit even with both bonuses maxed when the gap is large enough.
func TestSelectBestFitOutweighsModestBonuses(t *testing.T) {
	p := profile.Profile{
		SkillLevel:     0.2,
		PreferredTypes: []string{"number-series"},
	}
	fitting := candidate("fit", "pattern", 0.2, 0.6)
	distant := candidate("far", "number-series", 0.9, 0.6)

	// fit: 0.4*1.0 + 0 + 0.18 = 0.58; far: 0.4*0.3 + 0.3 + 0.18 = 0.60.
	// With equal success the bonus barely wins; dropping the distant
	// candidate's track record flips it back.
	distant.DNA.SuccessRate = 0.3
	winner, _ := selectBest([]Recommendation{fitting, distant}, p)
	if winner.Puzzle.ID != "fit" {
		t.Errorf("selected %q, want fit", winner.Puzzle.ID)
	}
}

func TestSelectBestTieStability(t *testing.T) {
	p := profile.Profile{SkillLevel: 0.5}
	candidates := []Recommendation{
		candidate("first", "pattern", 0.5, 0.6),
		candidate("second", "pattern", 0.5, 0.6),
		candidate("third", "pattern", 0.5, 0.6),
	}

	for i := 0; i < 10; i++ {
		winner, _ := selectBest(candidates, p)
		if winner.Puzzle.ID != "first" {
			t.Fatalf("round %d: tie broke to %q, want first-seen", i, winner.Puzzle.ID)
		}
	}
}

func TestSelectBestEmpty(t *testing.T) {
	if _, ok := selectBest(nil, profile.Profile{}); ok {
		t.Error("empty candidate list must not produce a winner")
	}
}

func TestSelectBestRewritesConfidence(t *testing.T) {
	p := profile.Profile{SkillLevel: 0.5}
	winner, _ := selectBest([]Recommendation{candidate("a", "pattern", 0.5, 1.0)}, p)

	// 0.4*1.0 + 0 + 0.3*1.0 = 0.7
	if winner.Confidence != 0.7 {
		t.Errorf("confidence = %v, want the winning score 0.7", winner.Confidence)
	}
	if winner.Reason == "" {
		t.Error("winner reason must be rewritten with the scoring detail")
	}
}
