package puzzle

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BasicGenerator produces structurally valid instances for every registered
// type. It exists so the CLI simulator, the local HTTP/MCP surfaces, and
// tests have a live content source; a production deployment plugs in its own
// Generator implementation instead.
type BasicGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBasicGenerator creates a generator seeded from the current time.
func NewBasicGenerator() *BasicGenerator {
	return NewSeededGenerator(time.Now().UnixNano())
}

// NewSeededGenerator creates a generator with a fixed seed (for tests).
func NewSeededGenerator(seed int64) *BasicGenerator {
	return &BasicGenerator{rng: rand.New(rand.NewSource(seed))}
}

var subtypes = map[string][]string{
	"pattern":            {"mirror", "rotation", "completion"},
	"sequential-figures": {"shapes", "arrows"},
	"transformation":     {"fold", "flip"},
	"paper-folding":      {"single-fold", "double-fold"},
	"serial-reasoning":   {"matrix", "row"},
	"analogy":            {"shape", "relation"},
	"number-series":      {"arithmetic", "geometric"},
	"number-grid":        {"magic-square", "sum-grid"},
}

// Generate implements Generator. Unknown or disabled types yield (nil, nil).
func (g *BasicGenerator) Generate(ctx context.Context, typeName string, difficulty float64, recentTypes []string) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if typeName == "" {
		typeName = g.pickType(recentTypes)
	}
	if !Enabled(typeName) {
		return nil, nil
	}
	return g.build(typeName, clamp01(difficulty)), nil
}

// GenerateSpecificType implements Generator, producing the easiest variant of
// the given type.
func (g *BasicGenerator) GenerateSpecificType(ctx context.Context, typeName string) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !Enabled(typeName) {
		return nil, nil
	}
	return g.build(typeName, 0.1), nil
}

// pickType chooses an enabled type, preferring one not in recentTypes.
func (g *BasicGenerator) pickType(recentTypes []string) string {
	recent := make(map[string]bool, len(recentTypes))
	for _, t := range recentTypes {
		recent[t] = true
	}
	var fresh []string
	for _, t := range EnabledTypes() {
		if !recent[t] {
			fresh = append(fresh, t)
		}
	}
	pool := fresh
	if len(pool) == 0 {
		pool = EnabledTypes()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return pool[g.rng.Intn(len(pool))]
}

// build constructs an instance whose grid size and option count scale with
// the requested difficulty. Grids run 2x2 (easiest) to 5x5, options 3 to 6.
func (g *BasicGenerator) build(typeName string, difficulty float64) *Instance {
	g.mu.Lock()
	defer g.mu.Unlock()

	size := 2 + int(math.Round(difficulty*3))
	optionCount := 3 + int(math.Round(difficulty*3))

	options := make([]string, optionCount)
	for i := range options {
		options[i] = fmt.Sprintf("option-%c", 'A'+i)
	}

	subs := subtypes[typeName]
	subtype := ""
	if len(subs) > 0 {
		subtype = subs[g.rng.Intn(len(subs))]
	}

	return &Instance{
		ID:         uuid.New().String(),
		Type:       typeName,
		Subtype:    subtype,
		Difficulty: difficulty,
		GridRows:   size,
		GridCols:   size,
		Question:   questionFor(typeName),
		Options:    options,
		Answer:     g.rng.Intn(optionCount),
		CreatedAt:  time.Now().UTC(),
	}
}

func questionFor(typeName string) string {
	switch typeName {
	case "pattern", "sequential-figures":
		return "Which option completes the pattern?"
	case "transformation", "paper-folding":
		return "Which option shows the result of the transformation?"
	case "serial-reasoning", "analogy":
		return "Which option continues the relationship?"
	default:
		return "Which option completes the series?"
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
