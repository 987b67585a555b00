package fusion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
	"ChessFlow/internal/services/calibration"
)

func centralSignature() *models.Signature {
	return &models.Signature{
		Fingerprint:   "f00",
		Quadrants:     models.QuadrantProfile{Center: 80, KingsideWhite: 10},
		Temporal:      models.TemporalFlow{Volatility: 35, Middlegame: 40},
		DominantSide:  models.SideWhite,
		FlowDirection: models.FlowCentral,
		Intensity:     55,
		Archetype:     models.CentralDomination,
		TotalMoves:    20,
	}
}

func TestFuseProbabilitiesSumToOne(t *testing.T) {
	e := NewEngine(calibration.NewStore())

	evals := []models.TacticalEvaluation{
		{ScoreCP: 0, Depth: 18},
		{ScoreCP: 180, Depth: 18},
		{ScoreCP: -2500, Depth: 18},
		{ScoreCP: 99999, Depth: 18},
		{ScoreCP: 3, Mate: true, MateDistance: 3, Depth: 18},
	}

	for _, eval := range evals {
		p := e.Fuse(eval, centralSignature(), nil).Probabilities
		require.InDelta(t, 1.0, p.Sum(), 1e-6, "score %d", eval.ScoreCP)
		for _, v := range []float64{p.White, p.Black, p.Draw} {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestFuseCentralDominationWhiteEdge(t *testing.T) {
	e := NewEngine(calibration.NewStore())

	pred := e.Fuse(models.TacticalEvaluation{BestMove: "d2d4", ScoreCP: 180, Depth: 20}, centralSignature(), nil)

	require.Equal(t, models.WhiteWins, pred.PredictedOutcome)
	require.Equal(t, models.SourceFusion, pred.Source)
	require.GreaterOrEqual(t, pred.Confidence.Overall, 10.0)
	require.LessOrEqual(t, pred.Confidence.Overall, 95.0)
	require.Equal(t, alignmentAgree, pred.Confidence.Alignment)
}

func TestAlignmentScoring(t *testing.T) {
	require.Equal(t, alignmentAgree, alignmentScore(models.SideWhite, models.SideWhite))
	require.Equal(t, alignmentContested, alignmentScore(models.SideWhite, models.SideContested))
	require.Equal(t, alignmentContested, alignmentScore(models.SideContested, models.SideBlack))
	require.Equal(t, alignmentConflict, alignmentScore(models.SideWhite, models.SideBlack))
}

func TestMoveRationaleRegions(t *testing.T) {
	require.Contains(t, moveRationale("g1f3", models.FlowKingside), "sustains")
	require.Contains(t, moveRationale("a2a4", models.FlowKingside), "trajectory-shifting")
	require.Contains(t, moveRationale("e2e4", models.FlowCentral), "sustains")
	require.Equal(t, "tactically strongest continuation", moveRationale("", models.FlowKingside))
}

func TestScoreShiftTiltsDistribution(t *testing.T) {
	e := NewEngine(calibration.NewStore())
	sig := centralSignature()

	neutral := e.Fuse(models.TacticalEvaluation{ScoreCP: 0}, sig, nil).Probabilities
	whiteEdge := e.Fuse(models.TacticalEvaluation{ScoreCP: 800}, sig, nil).Probabilities
	blackEdge := e.Fuse(models.TacticalEvaluation{ScoreCP: -800}, sig, nil).Probabilities

	require.Greater(t, whiteEdge.White, neutral.White)
	require.Greater(t, blackEdge.Black, neutral.Black)
	require.Less(t, blackEdge.White, neutral.White)
}

func TestTrajectoryWithinHorizon(t *testing.T) {
	e := NewEngine(calibration.NewStore())
	sig := centralSignature()
	def := models.DefinitionFor(sig.Archetype)

	pred := e.Fuse(models.TacticalEvaluation{ScoreCP: 50}, sig, nil)
	require.NotEmpty(t, pred.Trajectory)
	for _, m := range pred.Trajectory {
		require.Greater(t, m.MoveNumber, sig.TotalMoves)
		require.LessOrEqual(t, m.MoveNumber, sig.TotalMoves+def.Horizon)
	}
}

func TestStrategicConfidenceUsesMatches(t *testing.T) {
	def := models.DefinitionFor(models.CentralDomination)

	require.InDelta(t, def.WinRate*100, strategicConfidence(def, nil), 1e-9)

	matches := []models.PatternMatch{{Confidence: 80}, {Confidence: 60}}
	require.InDelta(t, 70.0, strategicConfidence(def, matches), 1e-9)
}
