// Package profile owns the mutable user state behind puzzle selection.
// The Manager is the single writer; reads get defensive copies. Persistence
// is write-behind: mutations enqueue a snapshot for a background saver and
// never block or fail the gameplay path.
package profile

import (
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateKey is the app-state key holding the serialized profile blob. The
// recent-performance window is embedded in the blob rather than stored under
// its own key.
const StateKey = "user_profile.v1"

// StateStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type StateStore interface {
	SetStateKey(key, value string) error
	GetStateKey(key string) (string, error)
	DeleteStateKey(key string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options bundles the profile-side adaptation knobs so tests can override
// them without touching logic.
type Options struct {
	RecentWindow      int     // bounded outcome window length
	MaxPreferredTypes int     // preferred-types cap, FIFO eviction
	EngagementAlpha   float64 // EWMA weight for new engagement observations
	SkillGain         float64 // applied when recent accuracy > RaiseAccuracy
	SkillLoss         float64 // applied when recent accuracy < LowerAccuracy
	SkillFloor        float64
	RaiseAccuracy     float64
	LowerAccuracy     float64

	// Defaults for a freshly created profile.
	DefaultSkill      float64
	DefaultAccuracy   float64
	DefaultCeiling    float64
	DefaultEngagement float64
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		RecentWindow:      10,
		MaxPreferredTypes: 5,
		EngagementAlpha:   0.1,
		SkillGain:         0.05,
		SkillLoss:         0.03,
		SkillFloor:        0.1,
		RaiseAccuracy:     0.8,
		LowerAccuracy:     0.4,
		DefaultSkill:      0.5,
		DefaultAccuracy:   0.6,
		DefaultCeiling:    0.7,
		DefaultEngagement: 0.7,
	}
}

// Manager provides cached, structured access to the user profile. Storage
// faults are logged and absorbed: reads fall back to a default profile,
// writes are best-effort.
type Manager struct {
	store  StateStore
	clock  Clock
	opts   Options
	logger *slog.Logger
	saver  *saver

	mu      sync.Mutex
	cached  *Profile
	session *SessionContext
}

// NewManager creates a Manager with default options.
func NewManager(store StateStore) *Manager {
	return NewManagerWithOptions(store, DefaultOptions(), realClock{})
}

// NewManagerWithOptions creates a Manager with custom options and clock.
func NewManagerWithOptions(store StateStore, opts Options, clock Clock) *Manager {
	logger := slog.Default()
	return &Manager{
		store:  store,
		clock:  clock,
		opts:   opts,
		logger: logger,
		saver:  newSaver(store, StateKey, logger),
	}
}

// Close stops the background saver, flushing any pending snapshot.
func (m *Manager) Close() {
	m.saver.Close()
}

// GetProfile returns a copy of the current profile. On first call it loads
// from storage; on load failure or absence it creates and persists a default
// profile. It never fails.
func (m *Manager) GetProfile() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProfile(m.profileLocked())
}

// copyProfile deep-copies the slice fields so a returned snapshot cannot
// mutate under the caller when the cached profile changes.
func copyProfile(p *Profile) Profile {
	cp := *p
	if p.RecentPerformance != nil {
		cp.RecentPerformance = make([]bool, len(p.RecentPerformance))
		copy(cp.RecentPerformance, p.RecentPerformance)
	}
	if p.PreferredTypes != nil {
		cp.PreferredTypes = make([]string, len(p.PreferredTypes))
		copy(cp.PreferredTypes, p.PreferredTypes)
	}
	if p.PowerUps != nil {
		cp.PowerUps = make(map[string]int, len(p.PowerUps))
		for k, v := range p.PowerUps {
			cp.PowerUps[k] = v
		}
	}
	return cp
}

func (m *Manager) profileLocked() *Profile {
	if m.cached != nil {
		return m.cached
	}

	blob, err := m.store.GetStateKey(StateKey)
	if err == nil {
		var p Profile
		if jsonErr := json.Unmarshal([]byte(blob), &p); jsonErr == nil {
			m.normalize(&p)
			m.cached = &p
			return m.cached
		} else {
			m.logger.Warn("corrupt profile blob, recreating defaults", "error", jsonErr)
		}
	} else {
		m.logger.Debug("no stored profile, creating defaults", "error", err)
	}

	p := m.defaultProfile()
	m.cached = &p
	m.enqueueSaveLocked()
	return m.cached
}

func (m *Manager) defaultProfile() Profile {
	now := m.clock.Now().UTC()
	return Profile{
		ID:            uuid.New().String(),
		CreatedAt:     now,
		LastActiveAt:  now,
		SkillLevel:    m.opts.DefaultSkill,
		MaxDifficulty: m.opts.DefaultCeiling,
		EngagementAvg: m.opts.DefaultEngagement,
		// OverallAccuracy starts at the neutral default so early difficulty
		// decisions aren't skewed by an empty history.
		OverallAccuracy: m.opts.DefaultAccuracy,
	}
}

// normalize repairs a loaded profile so the invariants hold even if the
// persisted blob was written by an older build or tampered with.
func (m *Manager) normalize(p *Profile) {
	p.SkillLevel = clamp01(p.SkillLevel)
	p.MaxDifficulty = clamp01(p.MaxDifficulty)
	p.OverallAccuracy = clamp01(p.OverallAccuracy)
	p.EngagementAvg = clamp01(p.EngagementAvg)
	if len(p.RecentPerformance) > m.opts.RecentWindow {
		p.RecentPerformance = p.RecentPerformance[len(p.RecentPerformance)-m.opts.RecentWindow:]
	}
	if len(p.PreferredTypes) > m.opts.MaxPreferredTypes {
		p.PreferredTypes = p.PreferredTypes[len(p.PreferredTypes)-m.opts.MaxPreferredTypes:]
	}
}

// RecordCompletion folds one puzzle outcome into the profile and the current
// session context, then enqueues a best-effort save.
func (m *Manager) RecordCompletion(puzzleID string, success bool, solveTime time.Duration, engagement float64) Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.profileLocked()
	p.LastActiveAt = m.clock.Now().UTC()
	p.TotalPuzzlesSolved++

	s := 0.0
	if success {
		s = 1.0
	}
	n := float64(p.TotalPuzzlesSolved)
	p.OverallAccuracy = clamp01((p.OverallAccuracy*(n-1) + s) / n)

	p.RecentPerformance = append(p.RecentPerformance, success)
	if len(p.RecentPerformance) > m.opts.RecentWindow {
		p.RecentPerformance = p.RecentPerformance[len(p.RecentPerformance)-m.opts.RecentWindow:]
	}

	engagement = clamp01(engagement)
	if p.EngagementSamples == 0 {
		p.EngagementAvg = engagement
	} else {
		p.EngagementAvg = clamp01((1-m.opts.EngagementAlpha)*p.EngagementAvg + m.opts.EngagementAlpha*engagement)
	}
	p.EngagementSamples++

	recent := p.RecentAccuracy(0)
	switch {
	case recent > m.opts.RaiseAccuracy:
		p.SkillLevel = math.Min(1.0, p.SkillLevel+m.opts.SkillGain)
	case recent < m.opts.LowerAccuracy:
		p.SkillLevel = math.Max(m.opts.SkillFloor, p.SkillLevel-m.opts.SkillLoss)
	}
	p.MaxDifficulty = math.Min(0.9, p.SkillLevel+0.2)

	if m.session != nil {
		m.session.PuzzlesSolved++
		sn := float64(m.session.PuzzlesSolved)
		m.session.Accuracy = clamp01((m.session.Accuracy*(sn-1) + s) / sn)
		m.session.Engagement = clamp01((m.session.Engagement*(sn-1) + engagement) / sn)
	}

	m.enqueueSaveLocked()
	return copyProfile(p)
}

// StartSession increments the session counter, persists, and returns a fresh
// session context.
func (m *Manager) StartSession() SessionContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.profileLocked()
	p.TotalSessions++
	p.LastActiveAt = m.clock.Now().UTC()

	m.session = &SessionContext{
		ID:        uuid.New().String(),
		StartedAt: m.clock.Now().UTC(),
	}

	m.enqueueSaveLocked()
	return *m.session
}

// Session returns a copy of the current session context, if one is active.
func (m *Manager) Session() (SessionContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return SessionContext{}, false
	}
	return *m.session, true
}

// UpdateTypePreference adds or removes a puzzle type from the preferred set.
// Adding past capacity evicts the oldest entry.
func (m *Manager) UpdateTypePreference(typeName string, liked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.profileLocked()

	filtered := p.PreferredTypes[:0]
	for _, t := range p.PreferredTypes {
		if t != typeName {
			filtered = append(filtered, t)
		}
	}
	p.PreferredTypes = filtered

	if liked {
		p.PreferredTypes = append(p.PreferredTypes, typeName)
		if len(p.PreferredTypes) > m.opts.MaxPreferredTypes {
			p.PreferredTypes = p.PreferredTypes[len(p.PreferredTypes)-m.opts.MaxPreferredTypes:]
		}
	}

	m.enqueueSaveLocked()
}

// ClearAll resets in-memory and persisted state to defaults. The storage
// delete is best-effort; the in-memory reset always happens.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cached = nil
	m.session = nil
	if err := m.store.DeleteStateKey(StateKey); err != nil {
		m.logger.Warn("clearing persisted profile failed", "error", err)
	}
}

// enqueueSaveLocked serializes the cached profile and hands it to the
// background saver. Serialization failure is logged, never propagated.
func (m *Manager) enqueueSaveLocked() {
	blob, err := json.Marshal(m.cached)
	if err != nil {
		m.logger.Error("marshalling profile for save", "error", err)
		return
	}
	m.saver.enqueue(string(blob))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
