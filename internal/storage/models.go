package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Completion is one recorded puzzle outcome.
type Completion struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	PuzzleID    string    `json:"puzzle_id"`
	PuzzleType  string    `json:"puzzle_type"`
	Success     bool      `json:"success"`
	SolveTimeMs int64     `json:"solve_time_ms"`
	Engagement  float64   `json:"engagement"`
	Difficulty  float64   `json:"difficulty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is one recorded play session.
type Session struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	PuzzlesSolved int       `json:"puzzles_solved"`
	Accuracy      float64   `json:"accuracy"`
	Engagement    float64   `json:"engagement"`
}
