// Package engine implements adaptive puzzle selection: it infers user
// characteristics from the profile, computes a target difficulty, generates
// and scores candidate puzzles, and closes the loop when outcomes are
// recorded. Generation faults degrade to safe fallbacks; the caller only
// ever sees an error when no puzzle can be produced at all.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

// ErrExhausted is returned when the content generator cannot produce any
// puzzle, including the simplest supported type. It is the only failure this
// engine surfaces to callers.
var ErrExhausted = errors.New("puzzle generation exhausted")

// CompletionLog records completion history rows. Implemented by
// storage.Store; optional.
type CompletionLog interface {
	SaveCompletion(storage.Completion) error
	UpdateSessionStats(id string, solved int, accuracy, engagement float64) error
}

// Engine ties the profile, detector, difficulty calculator, and candidate
// selection together. Construct with New; all dependencies are explicit.
type Engine struct {
	profiles  *profile.Manager
	analyzer  *dna.Analyzer
	generator puzzle.Generator
	history   CompletionLog // optional
	tuning    Tuning
	logger    *slog.Logger

	mu          sync.Mutex
	recentTypes []string
}

// New creates an Engine. history may be nil to skip persistence of
// completion rows (e.g. in the offline simulator).
func New(profiles *profile.Manager, analyzer *dna.Analyzer, generator puzzle.Generator, history CompletionLog, tuning Tuning, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		profiles:  profiles,
		analyzer:  analyzer,
		generator: generator,
		history:   history,
		tuning:    tuning,
		logger:    logger,
	}
}

// Characteristics exposes the current detector verdict for inspection
// surfaces (status endpoints, CLI).
func (e *Engine) Characteristics() Characteristics {
	return Detect(e.profiles.GetProfile(), e.tuning)
}

// NextPuzzle runs one selection round and returns a recommendation. Any
// generation or selection fault degrades to the fallback path; only total
// exhaustion returns an error.
func (e *Engine) NextPuzzle(ctx context.Context) (Recommendation, error) {
	p := e.profiles.GetProfile()
	chars := Detect(p, e.tuning)
	target := TargetDifficulty(p, chars, e.tuning)

	candidates := e.generateCandidates(ctx, p, chars, target)
	if rec, ok := selectBest(candidates, p); ok {
		e.rememberType(rec.Puzzle.Type)
		e.logger.Debug("puzzle selected",
			"type", rec.Puzzle.Type, "difficulty", rec.DNA.Difficulty,
			"target", target, "stage", chars.Stage, "confidence", rec.Confidence)
		return rec, nil
	}

	e.logger.Warn("no usable candidates, falling back", "target", target)
	return e.fallback(ctx)
}

// fallback is the two-tier recovery path: first a puzzle at a safe fixed
// difficulty, then the simplest supported type unconditionally.
func (e *Engine) fallback(ctx context.Context) (Recommendation, error) {
	inst, err := e.generator.Generate(ctx, "", e.tuning.FallbackDifficulty, e.recentTypeHistory())
	if err != nil {
		e.logger.Warn("safe-difficulty fallback failed", "error", err)
	}
	if inst == nil {
		inst, err = e.generator.GenerateSpecificType(ctx, puzzle.SimplestType())
		if err != nil {
			e.logger.Error("simplest-type fallback failed", "error", err)
		}
	}
	if inst == nil {
		return Recommendation{}, fmt.Errorf("%w: even %q failed", ErrExhausted, puzzle.SimplestType())
	}

	e.rememberType(inst.Type)
	return Recommendation{
		Puzzle:     inst,
		DNA:        e.analyzer.Analyze(inst),
		Reason:     "fallback: safe difficulty",
		Confidence: 0.5,
		Fallback:   true,
	}, nil
}

// RecordCompletion closes the loop after a puzzle outcome: DNA stats,
// profile state, session counters, and the history row all update here.
// Persistence failures are logged, never surfaced.
func (e *Engine) RecordCompletion(ctx context.Context, puzzleID string, success bool, solveTime time.Duration, engagement float64) {
	if _, known := e.analyzer.Get(puzzleID); !known {
		// Still record the outcome against a neutral DNA, but flag it: the
		// history row will carry an empty puzzle type.
		e.logger.Warn("completion for puzzle never analyzed", "puzzle_id", puzzleID)
	}
	d := e.analyzer.Update(puzzleID, success, engagement)
	p := e.profiles.RecordCompletion(puzzleID, success, solveTime, engagement)

	if e.history == nil {
		return
	}

	sess, _ := e.profiles.Session()
	row := storage.Completion{
		ID:          uuid.New().String(),
		SessionID:   sess.ID,
		PuzzleID:    puzzleID,
		PuzzleType:  d.Type,
		Success:     success,
		SolveTimeMs: solveTime.Milliseconds(),
		Engagement:  engagement,
		Difficulty:  d.Difficulty,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.history.SaveCompletion(row); err != nil {
		e.logger.Warn("recording completion row failed", "puzzle_id", puzzleID, "error", err)
	}
	if sess.ID != "" {
		if err := e.history.UpdateSessionStats(sess.ID, sess.PuzzlesSolved, sess.Accuracy, sess.Engagement); err != nil {
			e.logger.Warn("updating session stats failed", "session_id", sess.ID, "error", err)
		}
	}

	e.logger.Debug("completion recorded",
		"puzzle_id", puzzleID, "success", success,
		"skill", p.SkillLevel, "accuracy", p.OverallAccuracy)
}

// rememberType keeps a short history of served types so the generator can
// vary content.
func (e *Engine) rememberType(typeName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recentTypes = append(e.recentTypes, typeName)
	if len(e.recentTypes) > e.tuning.RecentTypeMemory {
		e.recentTypes = e.recentTypes[len(e.recentTypes)-e.tuning.RecentTypeMemory:]
	}
}

func (e *Engine) recentTypeHistory() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.recentTypes))
	copy(out, e.recentTypes)
	return out
}
