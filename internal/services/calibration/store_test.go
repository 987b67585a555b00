package calibration

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

func boolPtr(b bool) *bool { return &b }

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestBoostMultiplierStaysBounded(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		win := rng.Intn(2) == 0
		s.RecordPredictionOutcome(models.OpenTactical, win, boolPtr(!win))

		m := s.BoostMultiplier(models.OpenTactical)
		require.GreaterOrEqual(t, m, 0.7)
		require.LessOrEqual(t, m, 1.5)
	}
}

func TestBoostMovesOnlyOnDisagreement(t *testing.T) {
	s := NewStore()

	// Agreement: both correct. No boost movement.
	s.RecordPredictionOutcome(models.KingsideAttack, true, boolPtr(true))
	require.Equal(t, 1.0, s.BoostMultiplier(models.KingsideAttack))

	// Baseline correctness unknown. No boost movement.
	s.RecordPredictionOutcome(models.KingsideAttack, false, nil)
	require.Equal(t, 1.0, s.BoostMultiplier(models.KingsideAttack))

	// Win over the baseline.
	s.RecordPredictionOutcome(models.KingsideAttack, true, boolPtr(false))
	require.InDelta(t, 1.15, s.BoostMultiplier(models.KingsideAttack), 1e-9)

	// Loss against the baseline.
	s.RecordPredictionOutcome(models.KingsideAttack, false, boolPtr(true))
	require.InDelta(t, 1.075, s.BoostMultiplier(models.KingsideAttack), 1e-9)
}

func TestLiveMultiplierNeutralUnderFiveSamples(t *testing.T) {
	s := NewStore()
	for i := 0; i < 4; i++ {
		s.RecordPredictionOutcome(models.PieceHarmony, true, nil)
	}
	require.Equal(t, 1.0, s.LiveConfidenceMultiplier(models.PieceHarmony))

	s.RecordPredictionOutcome(models.PieceHarmony, true, nil)
	require.Greater(t, s.LiveConfidenceMultiplier(models.PieceHarmony), 1.0)
}

func TestLiveMultiplierClampedAtHalf(t *testing.T) {
	s := NewStore()
	for i := 0; i < 50; i++ {
		s.RecordPredictionOutcome(models.KingHunt, true, nil)
	}
	// Perfect accuracy: (1 - 1/3) * 1.5 = 1.0, clamped to 0.5.
	require.InDelta(t, 1.5, s.LiveConfidenceMultiplier(models.KingHunt), 1e-9)

	s2 := NewStore()
	for i := 0; i < 50; i++ {
		s2.RecordPredictionOutcome(models.KingHunt, false, nil)
	}
	require.InDelta(t, 0.5, s2.LiveConfidenceMultiplier(models.KingHunt), 1e-9)
}

func TestTemporalDecayHalvesDailyWeight(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	current := base
	s := NewStoreWithClock(func() time.Time { return current })

	// Five correct entries, then the clock jumps 48h and five wrong
	// entries land. Fresh failures must outweigh stale successes.
	for i := 0; i < 5; i++ {
		s.RecordPredictionOutcome(models.CentralDomination, true, nil)
	}
	current = base.Add(48 * time.Hour)
	for i := 0; i < 5; i++ {
		s.RecordPredictionOutcome(models.CentralDomination, false, nil)
	}

	snap := s.SnapshotFor(models.CentralDomination)
	require.Less(t, snap.WeightedAccuracy, 0.5)
	require.Greater(t, snap.WeightedAccuracy, 0.0)
}

func TestCalibratedConfidenceBounds(t *testing.T) {
	s := NewStoreWithClock(fixedClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	for _, raw := range []float64{-50, 0, 5, 50, 95, 200, 1000} {
		got, _ := s.CalibratedConfidence(models.EndgameTechnique, raw)
		require.GreaterOrEqual(t, got, 10.0)
		require.LessOrEqual(t, got, 95.0)
	}
}

func TestCalibratedConfidenceRationale(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.RecordPredictionOutcome(models.SacrificialAttack, true, boolPtr(false))
	}

	got, rationale := s.CalibratedConfidence(models.SacrificialAttack, 60)
	require.Greater(t, got, 60.0)
	require.NotEmpty(t, rationale)
}

func TestWindowEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore()
	for i := 0; i < 130; i++ {
		s.RecordPredictionOutcome(models.ClosedManeuvering, i%2 == 0, nil)
	}
	snap := s.SnapshotFor(models.ClosedManeuvering)
	require.Equal(t, 100, snap.WindowSize)
	require.Equal(t, 130, snap.Total)
}

func TestSeedSkipsUnknownLabels(t *testing.T) {
	s := NewStore()
	rows := []models.CalibrationRow{
		{Archetype: "Kingside Attack", PredictedCorrect: true, Timestamp: time.Now()},
		{Archetype: "no-such-archetype", PredictedCorrect: true, Timestamp: time.Now()},
		{Archetype: "central_domination", PredictedCorrect: false, Timestamp: time.Now()},
	}

	seeded, err := s.Seed(rows)
	require.Equal(t, 2, seeded)
	require.Error(t, err)

	var unknown *models.ErrUnknownArchetypeLabel
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "no-such-archetype", unknown.Label)
}
