package puzzle

import (
	"context"
	"testing"
)

func TestRegistryCategories(t *testing.T) {
	for _, name := range Types() {
		if _, ok := CategoryOf(name); !ok {
			t.Errorf("type %q has no category", name)
		}
	}
	if _, ok := CategoryOf("nonexistent"); ok {
		t.Error("unregistered type reported a category")
	}
}

func TestSimplestTypeIsEnabled(t *testing.T) {
	if !Enabled(SimplestType()) {
		t.Fatalf("simplest type %q is not enabled", SimplestType())
	}
}

func TestGenerateAllTypes(t *testing.T) {
	g := NewSeededGenerator(1)
	for _, name := range EnabledTypes() {
		inst, err := g.Generate(context.Background(), name, 0.5, nil)
		if err != nil {
			t.Fatalf("Generate(%s): %v", name, err)
		}
		if inst == nil {
			t.Fatalf("Generate(%s) returned nil", name)
		}
		if inst.Type != name {
			t.Errorf("Generate(%s) produced type %q", name, inst.Type)
		}
		if inst.ID == "" {
			t.Errorf("Generate(%s) produced empty id", name)
		}
		if inst.GridRows < 2 || inst.GridCols < 2 {
			t.Errorf("Generate(%s) grid too small: %dx%d", name, inst.GridRows, inst.GridCols)
		}
		if inst.Answer < 0 || inst.Answer >= len(inst.Options) {
			t.Errorf("Generate(%s) answer %d out of range for %d options", name, inst.Answer, len(inst.Options))
		}
	}
}

// TestGenerateUnknownType verifies the collaborator contract: unknown types
// yield nil without an error.
func TestGenerateUnknownType(t *testing.T) {
	g := NewSeededGenerator(1)
	inst, err := g.Generate(context.Background(), "tesseract-folding", 0.5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst != nil {
		t.Fatalf("expected nil instance for unknown type, got %+v", inst)
	}

	inst, err = g.GenerateSpecificType(context.Background(), "tesseract-folding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst != nil {
		t.Fatal("expected nil instance for unknown specific type")
	}
}

func TestDifficultyScalesStructure(t *testing.T) {
	g := NewSeededGenerator(1)

	easy, err := g.Generate(context.Background(), "pattern", 0.0, nil)
	if err != nil || easy == nil {
		t.Fatalf("easy generate failed: %v", err)
	}
	hard, err := g.Generate(context.Background(), "pattern", 1.0, nil)
	if err != nil || hard == nil {
		t.Fatalf("hard generate failed: %v", err)
	}

	if easy.GridRows >= hard.GridRows {
		t.Errorf("grid did not grow with difficulty: easy=%d hard=%d", easy.GridRows, hard.GridRows)
	}
	if len(easy.Options) >= len(hard.Options) {
		t.Errorf("options did not grow with difficulty: easy=%d hard=%d", len(easy.Options), len(hard.Options))
	}
}

func TestPickTypeAvoidsRecent(t *testing.T) {
	g := NewSeededGenerator(7)
	recent := EnabledTypes()[:len(EnabledTypes())-1]
	want := EnabledTypes()[len(EnabledTypes())-1]

	for i := 0; i < 10; i++ {
		inst, err := g.Generate(context.Background(), "", 0.5, recent)
		if err != nil || inst == nil {
			t.Fatalf("generate failed: %v", err)
		}
		if inst.Type != want {
			t.Fatalf("expected fresh type %q, got %q", want, inst.Type)
		}
	}
}
