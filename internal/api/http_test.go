package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/5hiel/artistic-minds-sub002/internal/dna"
	"github.com/5hiel/artistic-minds-sub002/internal/engine"
	"github.com/5hiel/artistic-minds-sub002/internal/profile"
	"github.com/5hiel/artistic-minds-sub002/internal/puzzle"
	"github.com/5hiel/artistic-minds-sub002/internal/storage"
)

const testToken = "test-token"

func newTestHandler(t *testing.T) (http.Handler, AppDeps) {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	profiles := profile.NewManager(store)
	t.Cleanup(func() {
		profiles.Close()
		store.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(profiles, dna.NewAnalyzer(), puzzle.NewSeededGenerator(1), store, engine.DefaultTuning(), logger)

	deps := AppDeps{
		Store:    store,
		Profiles: profiles,
		Engine:   eng,
		Token:    testToken,
	}
	return NewAppHandler(deps), deps
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func TestHealthIsUnauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestStartSession(t *testing.T) {
	h, deps := newTestHandler(t)

	w := doRequest(t, h, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var sess struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &sess)
	if sess.ID == "" {
		t.Fatal("session id missing from response")
	}

	stored, err := deps.Store.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("session row not persisted: %v", err)
	}
	if stored.ID != sess.ID {
		t.Errorf("stored session id = %q, want %q", stored.ID, sess.ID)
	}
}

func TestNextPuzzle(t *testing.T) {
	h, _ := newTestHandler(t)

	w := doRequest(t, h, http.MethodPost, "/next-puzzle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var rec struct {
		Puzzle struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"puzzle"`
		Confidence float64 `json:"confidence"`
	}
	decodeBody(t, w, &rec)
	if rec.Puzzle.ID == "" || rec.Puzzle.Type == "" {
		t.Fatalf("incomplete puzzle in response: %s", w.Body.String())
	}
}

func TestRecordCompletion(t *testing.T) {
	h, deps := newTestHandler(t)

	w := doRequest(t, h, http.MethodPost, "/next-puzzle", nil)
	var rec struct {
		Puzzle struct {
			ID string `json:"id"`
		} `json:"puzzle"`
	}
	decodeBody(t, w, &rec)

	w = doRequest(t, h, http.MethodPost, "/completions", map[string]any{
		"puzzle_id":     rec.Puzzle.ID,
		"success":       true,
		"solve_time_ms": 3500,
		"engagement":    0.8,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status        string `json:"status"`
		PuzzlesSolved int    `json:"puzzles_solved"`
	}
	decodeBody(t, w, &resp)
	if resp.Status != "recorded" || resp.PuzzlesSolved != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}

	rows, err := deps.Store.RecentCompletions(5)
	if err != nil {
		t.Fatalf("RecentCompletions: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d completion rows, want 1", len(rows))
	}
}

func TestRecordCompletionValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	w := doRequest(t, h, http.MethodPost, "/completions", map[string]any{
		"success": true,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing puzzle_id: status = %d, want 400", w.Code)
	}

	w = doRequest(t, h, http.MethodPost, "/completions", map[string]any{
		"puzzle_id":  "p1",
		"engagement": 1.5,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad engagement: status = %d, want 400", w.Code)
	}
}

func TestPatchProfilePreference(t *testing.T) {
	h, deps := newTestHandler(t)

	w := doRequest(t, h, http.MethodPatch, "/profile", map[string]any{
		"preferred_type": "analogy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if p := deps.Profiles.GetProfile(); !p.Prefers("analogy") {
		t.Error("preference not applied")
	}

	liked := false
	w = doRequest(t, h, http.MethodPatch, "/profile", map[string]any{
		"preferred_type": "analogy",
		"liked":          liked,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if p := deps.Profiles.GetProfile(); p.Prefers("analogy") {
		t.Error("preference not removed")
	}

	w = doRequest(t, h, http.MethodPatch, "/profile", map[string]any{
		"preferred_type": "sudoku",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type: status = %d, want 400", w.Code)
	}
}

func TestResetProfile(t *testing.T) {
	h, deps := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/next-puzzle", nil)
	deps.Profiles.UpdateTypePreference("pattern", true)

	w := doRequest(t, h, http.MethodDelete, "/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if p := deps.Profiles.GetProfile(); len(p.PreferredTypes) != 0 {
		t.Errorf("profile not reset: %+v", p)
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestHandler(t)

	doRequest(t, h, http.MethodPost, "/sessions", nil)

	w := doRequest(t, h, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var stats struct {
		Profile         map[string]any `json:"profile"`
		Characteristics map[string]any `json:"characteristics"`
		Recent          []any          `json:"recent"`
		Session         map[string]any `json:"session"`
	}
	decodeBody(t, w, &stats)
	if stats.Profile == nil || stats.Characteristics == nil {
		t.Fatalf("incomplete stats payload: %s", w.Body.String())
	}
	if stats.Recent == nil {
		t.Error("recent must be an empty array, not null")
	}
	if stats.Session == nil {
		t.Error("active session missing from stats")
	}
}
