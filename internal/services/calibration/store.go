package calibration

import (
	"fmt"
	"math"
	"sync"
	"time"

	"ChessFlow/internal/domain/models"
)

const (
	defaultWindowCapacity = 100
	defaultHalfLife       = 24 * time.Hour

	boostMin      = 0.7
	boostMax      = 1.5
	boostWinStep  = 0.15
	boostLossStep = 0.075

	liveMinSamples    = 5
	liveDeltaScale    = 1.5
	liveMaxAdjustment = 0.5
	randomBaseline    = 1.0 / 3.0

	confidenceFloor = 10.0
	confidenceCap   = 95.0
)

// windowEntry is one scored prediction in the sliding window.
type windowEntry struct {
	correct bool
	at      time.Time
}

// archetypeStats is the rolling calibration state for one archetype.
// The window evicts oldest entries on insertion pressure only; age
// affects an entry's weight, never its membership.
type archetypeStats struct {
	total           int
	correct         int
	window          []windowEntry
	disagreeWins    int
	disagreeLosses  int
	boostMultiplier float64
}

// Snapshot is a read-only copy of one archetype's calibration state.
type Snapshot struct {
	Archetype        models.Archetype `json:"archetype"`
	Total            int              `json:"total"`
	Correct          int              `json:"correct"`
	WindowSize       int              `json:"window_size"`
	DisagreeWins     int              `json:"disagree_wins"`
	DisagreeLosses   int              `json:"disagree_losses"`
	BoostMultiplier  float64          `json:"boost_multiplier"`
	WeightedAccuracy float64          `json:"weighted_accuracy"`
}

// Store holds global and per-archetype accuracy state. All methods are
// safe for concurrent use; the clock is injectable so temporal decay is
// testable deterministically.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	windowCap int
	halfLife  time.Duration
	global    archetypeStats
	perType   map[models.Archetype]*archetypeStats
}

// Option configures a Store.
type Option func(*Store)

// WithWindowSize overrides the per-archetype sliding window capacity.
func WithWindowSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.windowCap = n
		}
	}
}

// WithHalfLife overrides the temporal decay half-life.
func WithHalfLife(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.halfLife = d
		}
	}
}

// NewStore creates an empty calibration store using the real clock.
func NewStore(opts ...Option) *Store {
	return NewStoreWithClock(time.Now, opts...)
}

// NewStoreWithClock creates a store with an injected clock.
func NewStoreWithClock(now func() time.Time, opts ...Option) *Store {
	s := &Store{
		now:       now,
		windowCap: defaultWindowCapacity,
		halfLife:  defaultHalfLife,
		global:    archetypeStats{boostMultiplier: 1.0},
		perType:   make(map[models.Archetype]*archetypeStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stats(a models.Archetype) *archetypeStats {
	st, ok := s.perType[a]
	if !ok {
		st = &archetypeStats{boostMultiplier: 1.0}
		s.perType[a] = st
	}
	return st
}

// RecordPredictionOutcome folds one scored prediction into the archetype's
// window and totals. When the baseline predictor's correctness is also
// known and the two disagreed, the disagreement counters move the boost
// multiplier by a fixed step, clamped to [0.7, 1.5].
func (s *Store) RecordPredictionOutcome(a models.Archetype, wasCorrect bool, baselineCorrect *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	s.record(&s.global, wasCorrect, at)

	st := s.stats(a)
	s.record(st, wasCorrect, at)

	if baselineCorrect == nil || wasCorrect == *baselineCorrect {
		return
	}
	if wasCorrect {
		st.disagreeWins++
		st.boostMultiplier = clamp(st.boostMultiplier+boostWinStep, boostMin, boostMax)
	} else {
		st.disagreeLosses++
		st.boostMultiplier = clamp(st.boostMultiplier-boostLossStep, boostMin, boostMax)
	}
}

func (s *Store) record(st *archetypeStats, correct bool, at time.Time) {
	st.total++
	if correct {
		st.correct++
	}
	st.window = append(st.window, windowEntry{correct: correct, at: at})
	if len(st.window) > s.windowCap {
		st.window = st.window[len(st.window)-s.windowCap:]
	}
}

// Seed replays historical scored predictions from the persistent store.
// Rows with unrecognized archetype labels are skipped and reported.
func (s *Store) Seed(rows []models.CalibrationRow) (int, error) {
	seeded := 0
	var firstErr error
	for _, row := range rows {
		a, err := models.ParseArchetype(row.Archetype)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("seed calibration: %w", err)
			}
			continue
		}
		s.mu.Lock()
		s.record(&s.global, row.PredictedCorrect, row.Timestamp)
		s.record(s.stats(a), row.PredictedCorrect, row.Timestamp)
		s.mu.Unlock()
		seeded++
	}
	return seeded, firstErr
}

// temporalWeight halves an entry's weight for every half-life of age.
func (s *Store) temporalWeight(at time.Time) float64 {
	age := s.now().Sub(at)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(s.halfLife))
}

func (s *Store) weightedAccuracy(st *archetypeStats) (float64, int) {
	var weighted, totalWeight float64
	for _, e := range st.window {
		w := s.temporalWeight(e.at)
		totalWeight += w
		if e.correct {
			weighted += w
		}
	}
	if totalWeight == 0 {
		return 0, 0
	}
	return weighted / totalWeight, len(st.window)
}

// LiveConfidenceMultiplier compares the archetype's decayed window
// accuracy to the three-way random baseline. Fewer than five samples
// returns the neutral 1.0.
func (s *Store) LiveConfidenceMultiplier(a models.Archetype) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveMultiplier(s.stats(a))
}

func (s *Store) liveMultiplier(st *archetypeStats) float64 {
	acc, n := s.weightedAccuracy(st)
	if n < liveMinSamples {
		return 1.0
	}
	adjustment := clamp((acc-randomBaseline)*liveDeltaScale, -liveMaxAdjustment, liveMaxAdjustment)
	return 1.0 + adjustment
}

// CalibratedConfidence anchors a raw confidence to measured accuracy:
// the live multiplier and the disagreement boost both apply, and the
// result is clamped to [10, 95] so the system never claims certainty.
func (s *Store) CalibratedConfidence(a models.Archetype, raw float64) (float64, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats(a)
	var rationale []string

	live := s.liveMultiplier(st)
	if live != 1.0 {
		rationale = append(rationale, fmt.Sprintf("recent %s accuracy multiplier %.2f", a, live))
	}
	if st.boostMultiplier != 1.0 {
		rationale = append(rationale, fmt.Sprintf("disagreement record multiplier %.2f (%dW/%dL)",
			st.boostMultiplier, st.disagreeWins, st.disagreeLosses))
	}

	calibrated := raw * live * st.boostMultiplier
	if calibrated > confidenceCap {
		rationale = append(rationale, fmt.Sprintf("capped at %.0f", confidenceCap))
	} else if calibrated < confidenceFloor {
		rationale = append(rationale, fmt.Sprintf("floored at %.0f", confidenceFloor))
	}
	return clamp(calibrated, confidenceFloor, confidenceCap), rationale
}

// BoostMultiplier returns the archetype's current disagreement multiplier.
func (s *Store) BoostMultiplier(a models.Archetype) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats(a).boostMultiplier
}

// SnapshotFor exports one archetype's state for diagnostics.
func (s *Store) SnapshotFor(a models.Archetype) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats(a)
	acc, _ := s.weightedAccuracy(st)
	return Snapshot{
		Archetype:        a,
		Total:            st.total,
		Correct:          st.correct,
		WindowSize:       len(st.window),
		DisagreeWins:     st.disagreeWins,
		DisagreeLosses:   st.disagreeLosses,
		BoostMultiplier:  st.boostMultiplier,
		WeightedAccuracy: acc,
	}
}

// Snapshots exports the state of every tracked archetype. The global
// aggregate is reported separately by GlobalAccuracy.
func (s *Store) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Snapshot, 0, len(s.perType))
	for a, st := range s.perType {
		acc, _ := s.weightedAccuracy(st)
		out = append(out, Snapshot{
			Archetype:        a,
			Total:            st.total,
			Correct:          st.correct,
			WindowSize:       len(st.window),
			DisagreeWins:     st.disagreeWins,
			DisagreeLosses:   st.disagreeLosses,
			BoostMultiplier:  st.boostMultiplier,
			WeightedAccuracy: acc,
		})
	}
	return out
}

// GlobalAccuracy returns lifetime correct/total for all predictions.
func (s *Store) GlobalAccuracy() (correct, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global.correct, s.global.total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
