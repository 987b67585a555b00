package patterns

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

func referenceSignature() *models.Signature {
	return &models.Signature{
		Fingerprint: "1a2b3c",
		Quadrants: models.QuadrantProfile{
			KingsideWhite:  20,
			KingsideBlack:  45,
			QueensideWhite: -5,
			Center:         30,
		},
		Temporal:      models.TemporalFlow{Volatility: 50},
		DominantSide:  models.SideWhite,
		FlowDirection: models.FlowKingside,
		Intensity:     60,
		Archetype:     models.KingsideAttack,
		TotalMoves:    38,
	}
}

func TestSimilarityReflexive(t *testing.T) {
	c := referenceSignature().Reduce()
	sim, factors := Similarity(c, c)
	require.InDelta(t, 100.0, sim, 1e-9)
	require.NotEmpty(t, factors)
}

func TestSimilarityDecreasesMonotonically(t *testing.T) {
	ref := referenceSignature().Reduce()

	prev := 101.0
	for _, drift := range []float64{0, 10, 25, 45, 80} {
		other := ref
		other.Intensity = ref.Intensity + drift
		sim, _ := Similarity(ref, other)
		require.Less(t, sim, prev, "intensity drift %v", drift)
		prev = sim
	}

	prev = 101.0
	for _, drift := range []float64{0, 20, 60, 120} {
		other := ref
		other.Volatility = ref.Volatility + drift/2
		other.CenterControl = ref.CenterControl + drift
		sim, _ := Similarity(ref, other)
		require.Less(t, sim, prev, "center drift %v", drift)
		prev = sim
	}
}

func TestSimilarityContestedSideHalfCredit(t *testing.T) {
	ref := referenceSignature().Reduce()
	other := ref
	other.DominantSide = models.SideContested

	sim, _ := Similarity(ref, other)
	require.InDelta(t, 90.0, sim, 1e-9)
}

func TestAddPatternAssignsUniqueIDs(t *testing.T) {
	db := NewDatabase()
	sig := referenceSignature()

	a := db.AddPattern(sig, models.WhiteWins, models.GameMetadata{Event: "candidates"})
	b := db.AddPattern(sig, models.Draw, models.GameMetadata{})

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, db.Size())

	got, ok := db.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, models.WhiteWins, got.Outcome)
}

func TestFindSimilarSelfMatchScoresFull(t *testing.T) {
	db := NewDatabase()
	sig := referenceSignature()
	db.AddPattern(sig, models.WhiteWins, models.GameMetadata{})

	matches := db.FindSimilar(sig, 5)
	require.Len(t, matches, 1)
	require.InDelta(t, 100.0, matches[0].Similarity, 1e-9)
	require.Equal(t, models.WhiteWins, matches[0].PredictedOutcome)
}

func TestFindSimilarAdjacentArchetypeDiscounted(t *testing.T) {
	db := NewDatabase()
	sig := referenceSignature()

	twin := *sig
	twin.Archetype = models.SacrificialAttack
	db.AddPattern(&twin, models.WhiteWins, models.GameMetadata{})

	matches := db.FindSimilar(sig, 5)
	require.Len(t, matches, 1)
	require.InDelta(t, 80.0, matches[0].Similarity, 1e-9)
	require.InDelta(t, 56.0, matches[0].Confidence, 1e-9)
}

func TestFindSimilarDiscardsBelowFloor(t *testing.T) {
	db := NewDatabase()
	sig := referenceSignature()

	far := *sig
	far.FlowDirection = models.FlowQueenside
	far.DominantSide = models.SideBlack
	far.Intensity = 0
	far.Temporal.Volatility = 100
	far.Quadrants.Center = -100
	db.AddPattern(&far, models.BlackWins, models.GameMetadata{})

	matches := db.FindSimilar(sig, 5)
	require.Empty(t, matches)
}

func TestFindSimilarOrderedAndLimited(t *testing.T) {
	db := NewDatabase()
	sig := referenceSignature()

	for _, drift := range []float64{0, 15, 30, 45} {
		variant := *sig
		variant.Intensity = sig.Intensity + drift
		db.AddPattern(&variant, models.WhiteWins, models.GameMetadata{})
	}

	matches := db.FindSimilar(sig, 3)
	require.Len(t, matches, 3)
	for i := 1; i < len(matches); i++ {
		require.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
}
