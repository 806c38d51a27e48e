package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/5hiel/artistic-minds-sub002/internal/engine"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

type AppDeps struct {
	Store    *storage.Store
	Profiles *profile.Manager
	Engine   *engine.Engine
	Token    string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/sessions", handleStartSession(deps))
		r.Post("/next-puzzle", handleNextPuzzle(deps))
		r.Post("/completions", handleRecordCompletion(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))
		r.Delete("/profile", handleResetProfile(deps))
		r.Get("/stats", handleStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleStartSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := deps.Profiles.StartSession()

		if err := deps.Store.CreateSession(storage.Session{
			ID:        sess.ID,
			StartedAt: sess.StartedAt,
		}); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to record session: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess)
	}
}

func handleNextPuzzle(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Engine.NextPuzzle(r.Context())
		if errors.Is(err, engine.ErrExhausted) {
			httpError(w, http.StatusServiceUnavailable, "api_error", "no puzzle available: %v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "selecting puzzle: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

type completionRequest struct {
	PuzzleID    string  `json:"puzzle_id"`
	Success     bool    `json:"success"`
	SolveTimeMs int64   `json:"solve_time_ms"`
	Engagement  float64 `json:"engagement"`
}

func handleRecordCompletion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PuzzleID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "puzzle_id is required")
			return
		}
		if req.Engagement < 0 || req.Engagement > 1 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "engagement must be in [0, 1]")
			return
		}

		deps.Engine.RecordCompletion(r.Context(), req.PuzzleID,
			req.Success, time.Duration(req.SolveTimeMs)*time.Millisecond, req.Engagement)

		p := deps.Profiles.GetProfile()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":         "recorded",
			"skill_level":    p.SkillLevel,
			"accuracy":       p.OverallAccuracy,
			"puzzles_solved": p.TotalPuzzlesSolved,
		})
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Profiles.GetProfile())
	}
}

type patchProfileRequest struct {
	PreferredType string `json:"preferred_type"`
	Liked         *bool  `json:"liked"`
}

func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req patchProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PreferredType == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "preferred_type is required")
			return
		}
		if !puzzle.Enabled(req.PreferredType) {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"unknown puzzle type %q; valid types: %v", req.PreferredType, puzzle.EnabledTypes())
			return
		}

		liked := true
		if req.Liked != nil {
			liked = *req.Liked
		}
		deps.Profiles.UpdateTypePreference(req.PreferredType, liked)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
	}
}

func handleResetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Profiles.ClearAll()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		completions, err := deps.Store.RecentCompletions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list completions: %v", err)
			return
		}
		if completions == nil {
			completions = []storage.Completion{}
		}

		p := deps.Profiles.GetProfile()
		payload := map[string]any{
			"profile": map[string]any{
				"skill_level":    p.SkillLevel,
				"max_difficulty": p.MaxDifficulty,
				"accuracy":       p.OverallAccuracy,
				"engagement":     p.EngagementAvg,
				"puzzles_solved": p.TotalPuzzlesSolved,
				"sessions":       p.TotalSessions,
			},
			"characteristics": deps.Engine.Characteristics(),
			"recent":          completions,
		}
		if sess, ok := deps.Profiles.Session(); ok {
			payload["session"] = sess
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
