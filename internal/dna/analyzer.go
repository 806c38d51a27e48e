// Package dna characterizes generated puzzles. Each instance is reduced to a
// normalized "DNA" record — difficulty and complexity estimated from
// structure, plus running success/engagement statistics updated as outcomes
// are recorded. The index is in-memory only; records do not survive restarts.
package dna

import (
	"math"
	"sync"
	"time"

	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
)

// Neutral defaults for puzzles with no recorded outcomes yet.
const (
	defaultSuccessRate = 0.6
	defaultEngagement  = 0.7

	// engagementAlpha weights new engagement observations in the EWMA.
	engagementAlpha = 0.1
)

// DNA is the normalized characterization of one puzzle instance.
type DNA struct {
	PuzzleID     string    `json:"puzzle_id"`
	Type         string    `json:"type"`
	Subtype      string    `json:"subtype,omitempty"`
	Difficulty   float64   `json:"difficulty"`
	Complexity   float64   `json:"complexity"`
	SuccessRate  float64   `json:"success_rate"`
	Engagement   float64   `json:"engagement"`
	Observations int       `json:"observations"`
	CreatedAt    time.Time `json:"created_at"`
}

// Analyzer derives DNA from puzzle structure and keeps an index of records
// keyed by puzzle id.
type Analyzer struct {
	mu    sync.RWMutex
	index map[string]*DNA
}

// NewAnalyzer creates an Analyzer with an empty index.
func NewAnalyzer() *Analyzer {
	return &Analyzer{index: make(map[string]*DNA)}
}

// estimator derives difficulty and complexity from structural properties.
// One per category; ad hoc property probing stays out of the engine.
type estimator func(inst *puzzle.Instance) (difficulty, complexity float64)

var estimators = map[puzzle.Category]estimator{
	puzzle.CategoryVisual:       estimateVisual,
	puzzle.CategoryLogical:      estimateLogical,
	puzzle.CategoryMathematical: estimateMathematical,
	puzzle.CategorySpatial:      estimateSpatial,
}

// Analyze derives a DNA record for the instance and stores it in the index.
// It always produces a result: instances of unknown shape get a neutral DNA.
func (a *Analyzer) Analyze(inst *puzzle.Instance) DNA {
	d := DNA{
		Difficulty:  0.5,
		Complexity:  0.5,
		SuccessRate: defaultSuccessRate,
		Engagement:  defaultEngagement,
		CreatedAt:   time.Now().UTC(),
	}
	if inst == nil {
		return d
	}

	d.PuzzleID = inst.ID
	d.Type = inst.Type
	d.Subtype = inst.Subtype

	if cat, ok := puzzle.CategoryOf(inst.Type); ok {
		if est := estimators[cat]; est != nil {
			d.Difficulty, d.Complexity = est(inst)
		}
	}

	a.mu.Lock()
	stored := d
	a.index[d.PuzzleID] = &stored
	a.mu.Unlock()
	return d
}

// Get returns a copy of the DNA record for a puzzle id, if present.
func (a *Analyzer) Get(puzzleID string) (DNA, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.index[puzzleID]
	if !ok {
		return DNA{}, false
	}
	return *d, true
}

// Update merges a new outcome observation into the record for puzzleID,
// creating a neutral record if none exists. Success rate is a running mean
// over observations; engagement an exponentially weighted average.
func (a *Analyzer) Update(puzzleID string, success bool, engagement float64) DNA {
	a.mu.Lock()
	defer a.mu.Unlock()

	d, ok := a.index[puzzleID]
	if !ok {
		d = &DNA{
			PuzzleID:    puzzleID,
			Difficulty:  0.5,
			Complexity:  0.5,
			SuccessRate: defaultSuccessRate,
			Engagement:  defaultEngagement,
			CreatedAt:   time.Now().UTC(),
		}
		a.index[puzzleID] = d
	}

	s := 0.0
	if success {
		s = 1.0
	}
	// The neutral prior counts as one pseudo-observation so the first real
	// outcome does not wipe it out.
	n := float64(d.Observations) + 1
	d.SuccessRate = clamp01((d.SuccessRate*n + s) / (n + 1))
	d.Engagement = clamp01((1-engagementAlpha)*d.Engagement + engagementAlpha*clamp01(engagement))
	d.Observations++
	return *d
}

// Size reports the number of indexed records.
func (a *Analyzer) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.index)
}

// gridFactor normalizes grid area into [0,1]; 2x2 is the floor, 5x5 the cap.
func gridFactor(inst *puzzle.Instance) float64 {
	area := float64(inst.GridRows * inst.GridCols)
	return clamp01((area - 4) / 21)
}

// optionFactor normalizes option count into [0,1]; 3 options is the floor,
// 6 the cap.
func optionFactor(inst *puzzle.Instance) float64 {
	return clamp01((float64(len(inst.Options)) - 3) / 3)
}

func estimateVisual(inst *puzzle.Instance) (float64, float64) {
	structural := 0.7*gridFactor(inst) + 0.3*optionFactor(inst)
	return blend(inst.Difficulty, structural), structural
}

func estimateLogical(inst *puzzle.Instance) (float64, float64) {
	// Logical puzzles get harder mostly through distractor options.
	structural := 0.4*gridFactor(inst) + 0.6*optionFactor(inst)
	return blend(inst.Difficulty, structural), structural
}

func estimateMathematical(inst *puzzle.Instance) (float64, float64) {
	structural := 0.5*gridFactor(inst) + 0.5*optionFactor(inst)
	return blend(inst.Difficulty, structural), structural
}

func estimateSpatial(inst *puzzle.Instance) (float64, float64) {
	// Spatial reasoning cost is dominated by the figure, not the options.
	structural := 0.8*gridFactor(inst) + 0.2*optionFactor(inst)
	return blend(inst.Difficulty, structural), structural
}

// blend combines the generator's declared difficulty with the structural
// estimate, trusting the declaration more.
func blend(declared, structural float64) float64 {
	return clamp01(0.6*clamp01(declared) + 0.4*structural)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
