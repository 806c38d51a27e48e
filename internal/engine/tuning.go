package engine

// Tuning collects every threshold and weight in the selection logic so tests
// and callers can override them without touching code. The values are
// hand-tuned defaults, not hard requirements; the property tests pin down
// the behavior that must survive retuning.
type Tuning struct {
	// New-user and struggling short-circuits.
	NewUserThreshold   int     // total solved at or below which the user is "new"
	NewUserMax         float64 // difficulty cap for new users
	StrugglingAccuracy float64 // overall accuracy below which the user is struggling
	StrugglingMax      float64 // difficulty cap while struggling

	// Detector.
	BootstrapPuzzles int     // solved count during which detection is a linear ramp
	BootstrapFloor   float64 // ramp start cap
	BootstrapCeil    float64 // ramp end cap
	EngagementWeight float64 // preference-over-capability weight, 0.6–0.8 band

	// Difficulty blend.
	RecentDefault  float64 // recent success rate assumed for an empty window
	LowEngagement  float64 // engagement below this pulls difficulty down
	HighEngagement float64 // engagement above this (with good recent form) pushes up

	// Early-stage hard caps.
	EarlyStageCap  float64
	VeryEarlyCap   float64
	VeryEarlyLimit int // solved count at or below which the harder cap applies

	// Candidate generation and fallback.
	CandidateCount     int
	FallbackDifficulty float64
	RecentTypeMemory   int // generated types remembered for variety hints

	// Global configured ceiling, applied after everything else.
	GlobalMaxDifficulty float64
}

// DefaultTuning returns the production defaults.
func DefaultTuning() Tuning {
	return Tuning{
		NewUserThreshold:    10,
		NewUserMax:          0.4,
		StrugglingAccuracy:  0.4,
		StrugglingMax:       0.3,
		BootstrapPuzzles:    50,
		BootstrapFloor:      0.25,
		BootstrapCeil:       0.65,
		EngagementWeight:    0.7,
		RecentDefault:       0.6,
		LowEngagement:       0.5,
		HighEngagement:      0.8,
		EarlyStageCap:       0.32,
		VeryEarlyCap:        0.25,
		VeryEarlyLimit:      5,
		CandidateCount:      3,
		FallbackDifficulty:  0.3,
		RecentTypeMemory:    5,
		GlobalMaxDifficulty: 0.9,
	}
}
