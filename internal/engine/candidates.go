package engine

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
)

// Recommendation is the engine's answer to "what next": a puzzle, its DNA,
// and how confident the selector is that it fits the user right now.
type Recommendation struct {
	Puzzle     *puzzle.Instance `json:"puzzle"`
	DNA        dna.DNA          `json:"dna"`
	Reason     string           `json:"reason"`
	Confidence float64          `json:"confidence"`
	Fallback   bool             `json:"fallback,omitempty"`
}

// candidateTypes builds the type request order for one selection round:
// preferred types first, then the remaining enabled types, reordered by the
// detected learning style. Early-stage users only see visual and
// mathematical categories.
func candidateTypes(p profile.Profile, c Characteristics) []string {
	var ordered []string
	seen := make(map[string]bool)
	for _, t := range p.PreferredTypes {
		if puzzle.Enabled(t) && !seen[t] {
			ordered = append(ordered, t)
			seen[t] = true
		}
	}
	for _, t := range puzzle.EnabledTypes() {
		if !seen[t] {
			ordered = append(ordered, t)
			seen[t] = true
		}
	}

	switch c.Style {
	case StyleVisual:
		ordered = frontload(ordered, puzzle.CategoryVisual, puzzle.CategorySpatial)
	case StyleLogical:
		ordered = frontload(ordered, puzzle.CategoryLogical, puzzle.CategoryMathematical)
	}

	if c.Stage == StageEarly {
		var filtered []string
		for _, t := range ordered {
			cat, _ := puzzle.CategoryOf(t)
			if cat == puzzle.CategoryVisual || cat == puzzle.CategoryMathematical {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) > 0 {
			ordered = filtered
		}
	}
	return ordered
}

// frontload moves types of the given categories to the head of the list,
// preserving relative order within each half.
func frontload(types []string, cats ...puzzle.Category) []string {
	match := func(t string) bool {
		cat, _ := puzzle.CategoryOf(t)
		for _, c := range cats {
			if cat == c {
				return true
			}
		}
		return false
	}
	head := make([]string, 0, len(types))
	tail := make([]string, 0, len(types))
	for _, t := range types {
		if match(t) {
			head = append(head, t)
		} else {
			tail = append(tail, t)
		}
	}
	return append(head, tail...)
}

// generateCandidates requests CandidateCount instances at the target
// difficulty, concurrently but order-stable, and wraps each into a scored
// recommendation. Generator failures for individual slots are logged and
// skipped; an empty result triggers the caller's fallback path.
func (e *Engine) generateCandidates(ctx context.Context, p profile.Profile, c Characteristics, target float64) []Recommendation {
	types := candidateTypes(p, c)
	recent := e.recentTypeHistory()

	slots := make([]*puzzle.Instance, e.tuning.CandidateCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.tuning.CandidateCount)

	for i := 0; i < e.tuning.CandidateCount; i++ {
		typeName := types[i%len(types)]
		g.Go(func() error {
			inst, err := e.generator.Generate(gctx, typeName, target, recent)
			if err != nil {
				e.logger.Debug("candidate generation failed", "type", typeName, "error", err)
				return nil // other slots may still produce
			}
			slots[i] = inst
			return nil
		})
	}
	// Per-slot failures are logged and skipped inside the goroutines, so the
	// group itself never reports an error.
	_ = g.Wait()

	var candidates []Recommendation
	for _, inst := range slots {
		if inst == nil {
			continue
		}
		d := e.analyzer.Analyze(inst)
		match := 1 - math.Abs(d.Difficulty-target)
		conf := 0.5*match + 0.3*d.Engagement + 0.2*d.SuccessRate
		candidates = append(candidates, Recommendation{
			Puzzle:     inst,
			DNA:        d,
			Reason:     fmt.Sprintf("candidate %s at difficulty %.2f (target %.2f)", inst.Type, d.Difficulty, target),
			Confidence: clamp(conf, 0, 1),
		})
	}
	return candidates
}
