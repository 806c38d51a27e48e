package puzzle

import (
	"context"
	"time"
)

// Category groups puzzle types by the kind of reasoning they exercise.
type Category string

const (
	CategoryVisual       Category = "visual"
	CategoryLogical      Category = "logical"
	CategoryMathematical Category = "mathematical"
	CategorySpatial      Category = "spatial"
)

// Instance is a concrete generated puzzle. The engine only inspects its
// structural properties (grid size, option count, declared difficulty); the
// question/options payload is passed through to the presentation layer.
type Instance struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Subtype    string    `json:"subtype,omitempty"`
	Difficulty float64   `json:"difficulty"` // generator's declared estimate, 0–1
	GridRows   int       `json:"grid_rows"`
	GridCols   int       `json:"grid_cols"`
	Question   string    `json:"question"`
	Options    []string  `json:"options"`
	Answer     int       `json:"answer"` // index into Options
	CreatedAt  time.Time `json:"created_at"`
}

// Generator produces puzzle instances on demand. Implementations must return
// (nil, nil) when asked for an unknown or disabled type instead of failing.
type Generator interface {
	// Generate returns an instance of the given type near the requested
	// difficulty. An empty typeName lets the generator pick one, avoiding
	// the types in recentTypes where possible.
	Generate(ctx context.Context, typeName string, difficulty float64, recentTypes []string) (*Instance, error)

	// GenerateSpecificType returns an instance of exactly the given type at
	// the generator's easiest setting.
	GenerateSpecificType(ctx context.Context, typeName string) (*Instance, error)
}

type typeInfo struct {
	category Category
	enabled  bool
}

// Registered puzzle types in presentation order. "pattern" is deliberately
// first: it is the simplest supported type and the last-resort fallback.
var typeOrder = []string{
	"pattern",
	"sequential-figures",
	"transformation",
	"paper-folding",
	"serial-reasoning",
	"analogy",
	"number-series",
	"number-grid",
}

var registry = map[string]typeInfo{
	"pattern":            {category: CategoryVisual, enabled: true},
	"sequential-figures": {category: CategoryVisual, enabled: true},
	"transformation":     {category: CategorySpatial, enabled: true},
	"paper-folding":      {category: CategorySpatial, enabled: true},
	"serial-reasoning":   {category: CategoryLogical, enabled: true},
	"analogy":            {category: CategoryLogical, enabled: true},
	"number-series":      {category: CategoryMathematical, enabled: true},
	"number-grid":        {category: CategoryMathematical, enabled: true},
}

// Types returns all registered type names in presentation order.
func Types() []string {
	out := make([]string, len(typeOrder))
	copy(out, typeOrder)
	return out
}

// EnabledTypes returns the enabled type names in presentation order.
func EnabledTypes() []string {
	var out []string
	for _, name := range typeOrder {
		if registry[name].enabled {
			out = append(out, name)
		}
	}
	return out
}

// CategoryOf reports the category of a registered type.
func CategoryOf(typeName string) (Category, bool) {
	info, ok := registry[typeName]
	return info.category, ok
}

// Enabled reports whether a type is registered and enabled.
func Enabled(typeName string) bool {
	info, ok := registry[typeName]
	return ok && info.enabled
}

// SimplestType returns the type used as the unconditional last-resort fallback.
func SimplestType() string {
	return typeOrder[0]
}
