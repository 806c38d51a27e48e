package engine

import (
	"math"

	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
)

// Stage is the inferred maturity of the user's reasoning ability.
type Stage string

const (
	StageEarly        Stage = "early"
	StageIntermediate Stage = "intermediate"
	StageAdvanced     Stage = "advanced"
)

// Style is the inferred content-type bias used to weight candidate types.
type Style string

const (
	StyleVisual  Style = "visual"
	StyleLogical Style = "logical"
	StyleMixed   Style = "mixed"
)

// Characteristics is the detector's verdict: a hard difficulty cap plus the
// stage/style used to bias candidate selection.
type Characteristics struct {
	MaxDifficulty float64 `json:"max_difficulty"`
	Style         Style   `json:"learning_style"`
	Stage         Stage   `json:"development_stage"`
}

// categorySignals are approximate per-category success rates derived from
// the preference proxy, plus the auxiliary behavioral flags.
type categorySignals struct {
	visualSuccess   float64 // visual + spatial categories
	abstractSuccess float64 // logical category
	mathSuccess     float64 // mathematical category

	lowSkillCeiling        bool
	quickGiveUps           bool
	lowOverallAccuracy     bool
	prefersConsistentWins  bool
	challengeSeeker        bool
	frustratedByDifficulty bool
}

// Detect is a pure function of profile state. During the bootstrap phase it
// returns a linearly scaled cap with no signal analysis; afterwards it
// classifies the user from category success proxies and behavioral flags.
//
// Preference dominates raw capability here: a user who can solve hard
// puzzles but disengages when forced to gets a lower cap, while genuine
// struggle signals hard-cap difficulty regardless of isolated successes.
func Detect(p profile.Profile, t Tuning) Characteristics {
	if p.TotalPuzzlesSolved < t.BootstrapPuzzles {
		return bootstrapCharacteristics(p, t)
	}
	return classify(deriveSignals(p, t), p, t)
}

// bootstrapCharacteristics ramps the cap from BootstrapFloor to BootstrapCeil
// across the first BootstrapPuzzles solved, adjusted by up to ±0.1 for recent
// form. Style stays mixed: there is not enough data to infer one.
func bootstrapCharacteristics(p profile.Profile, t Tuning) Characteristics {
	progress := float64(p.TotalPuzzlesSolved) / float64(t.BootstrapPuzzles)
	ramp := t.BootstrapFloor + progress*(t.BootstrapCeil-t.BootstrapFloor)

	recent := p.RecentAccuracy(t.RecentDefault)
	adj := (recent - 0.6) * 0.25
	adj = math.Max(-0.1, math.Min(0.1, adj))

	stage := StageEarly
	switch {
	case progress >= 2.0/3.0:
		stage = StageAdvanced
	case progress >= 1.0/3.0:
		stage = StageIntermediate
	}

	return Characteristics{
		MaxDifficulty: clamp(ramp+adj, 0.1, t.BootstrapCeil+0.1),
		Style:         StyleMixed,
		Stage:         stage,
	}
}

// deriveSignals builds category success proxies from preferred-types
// membership (≈0.8 success) versus a discounted overall accuracy for the
// rest, restricted to enabled categories, plus the behavioral flags.
func deriveSignals(p profile.Profile, t Tuning) categorySignals {
	var sums = map[puzzle.Category]float64{}
	var counts = map[puzzle.Category]int{}

	for _, typeName := range puzzle.EnabledTypes() {
		cat, ok := puzzle.CategoryOf(typeName)
		if !ok {
			continue
		}
		proxy := 0.8 * p.OverallAccuracy
		if p.Prefers(typeName) {
			proxy = 0.8
		}
		sums[cat] += proxy
		counts[cat]++
	}

	avg := func(cats ...puzzle.Category) float64 {
		total, n := 0.0, 0
		for _, c := range cats {
			total += sums[c]
			n += counts[c]
		}
		if n == 0 {
			return 0
		}
		return total / float64(n)
	}

	return categorySignals{
		visualSuccess:   avg(puzzle.CategoryVisual, puzzle.CategorySpatial),
		abstractSuccess: avg(puzzle.CategoryLogical),
		mathSuccess:     avg(puzzle.CategoryMathematical),

		lowSkillCeiling:        p.MaxDifficulty < 0.4,
		quickGiveUps:           p.RecentFailures() > 6,
		lowOverallAccuracy:     p.OverallAccuracy < 0.5,
		prefersConsistentWins:  p.OverallAccuracy > 0.75 && p.EngagementAvg > 0.8,
		challengeSeeker:        p.OverallAccuracy < 0.8 && p.EngagementAvg > 0.7,
		frustratedByDifficulty: p.MaxDifficulty > 0.6 && p.EngagementAvg < 0.6,
	}
}

// classify maps signals to a stage/style/cap, in priority order: struggle
// patterns first (safety), then preference-for-success (engagement outranks
// capability), then challenge seekers, then the default middle band.
func classify(sig categorySignals, p profile.Profile, t Tuning) Characteristics {
	ceiling := p.MaxDifficulty

	visualDominant := sig.visualSuccess > sig.abstractSuccess+0.2 && sig.abstractSuccess < 0.3
	struggling := sig.lowSkillCeiling || sig.quickGiveUps || sig.lowOverallAccuracy

	switch {
	case visualDominant || struggling:
		return Characteristics{
			MaxDifficulty: math.Min(0.35, ceiling+0.05),
			Style:         StyleVisual,
			Stage:         StageEarly,
		}

	case sig.prefersConsistentWins && !sig.challengeSeeker:
		// Weight heavily toward the engagement signal rather than raw
		// capability: the user could go higher but would rather not.
		return Characteristics{
			MaxDifficulty: math.Min(0.45, ceiling*(1-t.EngagementWeight)+0.2),
			Style:         StyleMixed,
			Stage:         StageIntermediate,
		}

	case sig.challengeSeeker ||
		(sig.mathSuccess > 0.7 && p.OverallAccuracy > 0.8 && ceiling > 0.7 && !sig.frustratedByDifficulty):
		return Characteristics{
			MaxDifficulty: math.Min(0.9, ceiling+0.15),
			Style:         StyleLogical,
			Stage:         StageAdvanced,
		}

	default:
		return Characteristics{
			MaxDifficulty: math.Min(0.65, ceiling+0.1),
			Style:         StyleMixed,
			Stage:         StageIntermediate,
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
