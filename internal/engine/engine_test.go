package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

type genCall struct {
	typeName   string
	difficulty float64
}

// mockGenerator records every request and dispatches to overridable
// functions. The zero value produces a plain instance of whatever type is
// asked for.
type mockGenerator struct {
	mu       sync.Mutex
	calls    []genCall
	generate func(typeName string, difficulty float64, recent []string) (*puzzle.Instance, error)
	specific func(typeName string) (*puzzle.Instance, error)
}

func (g *mockGenerator) Generate(_ context.Context, typeName string, difficulty float64, recent []string) (*puzzle.Instance, error) {
	g.mu.Lock()
	g.calls = append(g.calls, genCall{typeName: typeName, difficulty: difficulty})
	g.mu.Unlock()

	if g.generate != nil {
		return g.generate(typeName, difficulty, recent)
	}
	if typeName == "" {
		typeName = puzzle.SimplestType()
	}
	return instanceOf(typeName, difficulty), nil
}

func (g *mockGenerator) GenerateSpecificType(_ context.Context, typeName string) (*puzzle.Instance, error) {
	if g.specific != nil {
		return g.specific(typeName)
	}
	return instanceOf(typeName, 0.1), nil
}

func (g *mockGenerator) recorded() []genCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]genCall, len(g.calls))
	copy(out, g.calls)
	return out
}

func instanceOf(typeName string, difficulty float64) *puzzle.Instance {
	return &puzzle.Instance{
		ID:         "test-" + typeName,
		Type:       typeName,
		Difficulty: difficulty,
		GridRows:   3,
		GridCols:   3,
		Question:   "?",
		Options:    []string{"a", "b", "c"},
		CreatedAt:  time.Now().UTC(),
	}
}

func newTestEngine(t *testing.T, gen puzzle.Generator) (*Engine, *profile.Manager, *storage.Store) {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	profiles := profile.NewManager(store)
	t.Cleanup(func() {
		profiles.Close()
		store.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(profiles, dna.NewAnalyzer(), gen, store, DefaultTuning(), logger), profiles, store
}

func TestNextPuzzleHappyPath(t *testing.T) {
	gen := &mockGenerator{}
	eng, _, _ := newTestEngine(t, gen)

	rec, err := eng.NextPuzzle(context.Background())
	if err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}
	if rec.Puzzle == nil {
		t.Fatal("recommendation has no puzzle")
	}
	if rec.Fallback {
		t.Error("healthy generator should not trigger the fallback path")
	}
	if !puzzle.Enabled(rec.Puzzle.Type) {
		t.Errorf("recommended disabled type %q", rec.Puzzle.Type)
	}
	if rec.Confidence <= 0 || rec.Confidence > 1 {
		t.Errorf("confidence %v out of range", rec.Confidence)
	}
}

// TestNewUserRequestsStaySafe asserts the outward law: every generation
// request for a fresh profile's first rounds stays at or under the new-user
// difficulty cap.
func TestNewUserRequestsStaySafe(t *testing.T) {
	gen := &mockGenerator{}
	eng, _, _ := newTestEngine(t, gen)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := eng.NextPuzzle(ctx); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
	}

	tun := DefaultTuning()
	for _, call := range gen.recorded() {
		if call.difficulty > tun.NewUserMax {
			t.Errorf("requested difficulty %v for type %q exceeds new-user cap", call.difficulty, call.typeName)
		}
	}
}

func TestCandidateTypesEarlyFilter(t *testing.T) {
	p := profile.Profile{
		SkillLevel:         0.5,
		MaxDifficulty:      0.7,
		TotalPuzzlesSolved: 5,
	}
	chars := Detect(p, DefaultTuning())
	if chars.Stage != StageEarly {
		t.Fatalf("stage = %s, want early", chars.Stage)
	}

	for _, typeName := range candidateTypes(p, chars) {
		cat, _ := puzzle.CategoryOf(typeName)
		if cat != puzzle.CategoryVisual && cat != puzzle.CategoryMathematical {
			t.Errorf("early-stage candidate %q has category %s", typeName, cat)
		}
	}
}

func TestCandidateTypesVisualFrontload(t *testing.T) {
	p := profile.Profile{SkillLevel: 0.5, MaxDifficulty: 0.7}
	chars := Characteristics{Style: StyleVisual, Stage: StageIntermediate, MaxDifficulty: 0.5}

	types := candidateTypes(p, chars)
	if len(types) == 0 {
		t.Fatal("no candidate types")
	}
	sawOther := false
	for _, typeName := range types {
		cat, _ := puzzle.CategoryOf(typeName)
		visualish := cat == puzzle.CategoryVisual || cat == puzzle.CategorySpatial
		if !visualish {
			sawOther = true
		}
		if visualish && sawOther {
			t.Fatalf("visual type %q appears after a non-visual one: %v", typeName, types)
		}
	}
}

func TestCandidateTypesPreferredFirst(t *testing.T) {
	p := profile.Profile{
		SkillLevel:     0.5,
		MaxDifficulty:  0.7,
		PreferredTypes: []string{"analogy", "number-grid"},
	}
	chars := Characteristics{Style: StyleMixed, Stage: StageIntermediate, MaxDifficulty: 0.5}

	types := candidateTypes(p, chars)
	if types[0] != "analogy" || types[1] != "number-grid" {
		t.Errorf("preferred types not frontloaded: %v", types)
	}
}

func TestFallbackSafeDifficulty(t *testing.T) {
	tun := DefaultTuning()
	gen := &mockGenerator{
		generate: func(typeName string, difficulty float64, _ []string) (*puzzle.Instance, error) {
			// Typed requests fail; only the open fallback request succeeds.
			if typeName != "" {
				return nil, errors.New("generator glitch")
			}
			return instanceOf("pattern", difficulty), nil
		},
	}
	eng, _, _ := newTestEngine(t, gen)

	rec, err := eng.NextPuzzle(context.Background())
	if err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}
	if !rec.Fallback {
		t.Error("expected a fallback recommendation")
	}
	if rec.Confidence != 0.5 {
		t.Errorf("fallback confidence = %v, want 0.5", rec.Confidence)
	}
	if rec.Puzzle.Difficulty != tun.FallbackDifficulty {
		t.Errorf("fallback difficulty = %v, want %v", rec.Puzzle.Difficulty, tun.FallbackDifficulty)
	}
}

func TestFallbackSimplestType(t *testing.T) {
	gen := &mockGenerator{
		generate: func(string, float64, []string) (*puzzle.Instance, error) {
			return nil, errors.New("generator down")
		},
	}
	eng, _, _ := newTestEngine(t, gen)

	rec, err := eng.NextPuzzle(context.Background())
	if err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}
	if !rec.Fallback {
		t.Error("expected a fallback recommendation")
	}
	if rec.Puzzle.Type != puzzle.SimplestType() {
		t.Errorf("fallback type = %q, want %q", rec.Puzzle.Type, puzzle.SimplestType())
	}
}

func TestNextPuzzleExhausted(t *testing.T) {
	gen := &mockGenerator{
		generate: func(string, float64, []string) (*puzzle.Instance, error) {
			return nil, errors.New("generator down")
		},
		specific: func(string) (*puzzle.Instance, error) {
			return nil, errors.New("generator down")
		},
	}
	eng, _, _ := newTestEngine(t, gen)

	if _, err := eng.NextPuzzle(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestRecordCompletionPersistsHistory(t *testing.T) {
	gen := &mockGenerator{}
	eng, profiles, store := newTestEngine(t, gen)
	ctx := context.Background()

	profiles.StartSession()
	rec, err := eng.NextPuzzle(ctx)
	if err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}

	eng.RecordCompletion(ctx, rec.Puzzle.ID, true, 4200*time.Millisecond, 0.8)

	rows, err := store.RecentCompletions(10)
	if err != nil {
		t.Fatalf("RecentCompletions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d history rows, want 1", len(rows))
	}
	row := rows[0]
	if row.PuzzleID != rec.Puzzle.ID || !row.Success || row.SolveTimeMs != 4200 {
		t.Errorf("unexpected row contents: %+v", row)
	}

	p := profiles.GetProfile()
	if p.TotalPuzzlesSolved != 1 {
		t.Errorf("solved = %d, want 1", p.TotalPuzzlesSolved)
	}
}

func TestRecordCompletionUpdatesDNA(t *testing.T) {
	gen := &mockGenerator{}
	eng, _, _ := newTestEngine(t, gen)
	ctx := context.Background()

	rec, err := eng.NextPuzzle(ctx)
	if err != nil {
		t.Fatalf("NextPuzzle: %v", err)
	}
	before := rec.DNA.SuccessRate

	eng.RecordCompletion(ctx, rec.Puzzle.ID, true, time.Second, 0.9)

	after, ok := eng.analyzer.Get(rec.Puzzle.ID)
	if !ok {
		t.Fatal("DNA record missing after completion")
	}
	if after.SuccessRate <= before {
		t.Errorf("success rate %v should rise after a win (was %v)", after.SuccessRate, before)
	}
	if after.Observations != 1 {
		t.Errorf("observations = %d, want 1", after.Observations)
	}
}

func TestRecentTypeMemoryBounded(t *testing.T) {
	gen := &mockGenerator{}
	eng, _, _ := newTestEngine(t, gen)
	tun := DefaultTuning()

	for i := 0; i < tun.RecentTypeMemory+3; i++ {
		eng.rememberType("pattern")
	}
	if got := len(eng.recentTypeHistory()); got != tun.RecentTypeMemory {
		t.Errorf("recent type memory length = %d, want %d", got, tun.RecentTypeMemory)
	}
}

func TestCharacteristicsExposed(t *testing.T) {
	gen := &mockGenerator{}
	eng, _, _ := newTestEngine(t, gen)

	c := eng.Characteristics()
	if c.Stage != StageEarly || c.Style != StyleMixed {
		t.Errorf("fresh profile should detect early/mixed, got %s/%s", c.Stage, c.Style)
	}
}

// TestRecordCompletionUnknownPuzzleWarns: a completion for an id the analyzer
// never saw still records against a neutral DNA, but the miss is logged and
// the history row carries an empty type.
func TestRecordCompletionUnknownPuzzleWarns(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	profiles := profile.NewManager(store)
	t.Cleanup(func() {
		profiles.Close()
		store.Close()
	})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	eng := New(profiles, dna.NewAnalyzer(), &mockGenerator{}, store, DefaultTuning(), logger)

	eng.RecordCompletion(context.Background(), "never-generated", true, 3*time.Second, 0.7)

	if !strings.Contains(logs.String(), "never analyzed") {
		t.Errorf("expected a warning about the unanalyzed puzzle, logs:\n%s", logs.String())
	}
	rows, err := store.RecentCompletions(1)
	if err != nil {
		t.Fatalf("RecentCompletions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(rows))
	}
	if rows[0].PuzzleType != "" {
		t.Errorf("unanalyzed completion recorded type %q, want empty", rows[0].PuzzleType)
	}
}
