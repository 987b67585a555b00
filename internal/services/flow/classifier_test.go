package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

func sigWith(q models.QuadrantProfile, tf models.TemporalFlow, criticals int, moves int) *models.Signature {
	cms := make([]models.CriticalMoment, criticals)
	for i := range cms {
		cms[i] = models.CriticalMoment{MoveNumber: i + 2, Magnitude: 6, Side: models.SideWhite}
	}
	return &models.Signature{
		Quadrants:       q,
		Temporal:        tf,
		CriticalMoments: cms,
		TotalMoves:      moves,
	}
}

func TestClassifyRuleOrderPrecedence(t *testing.T) {
	// Satisfies both the kingside-attack rule (kingside magnitude > 60,
	// volatility > 40) and the central-domination rule (center > 70).
	// Earlier rule must win.
	sig := sigWith(
		models.QuadrantProfile{KingsideBlack: 80, Center: 90},
		models.TemporalFlow{Volatility: 55},
		0, 25,
	)
	require.Equal(t, models.KingsideAttack, Classify(sig))
}

func TestClassifyQueensideExpansion(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{QueensideWhite: 75},
		models.TemporalFlow{Volatility: 45, Middlegame: 50},
		0, 25,
	)
	require.Equal(t, models.QueensideExpansion, Classify(sig))
}

func TestClassifyCentralDomination(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{Center: 85},
		models.TemporalFlow{Volatility: 45, Middlegame: 50},
		0, 25,
	)
	require.Equal(t, models.CentralDomination, Classify(sig))
}

func TestClassifyEndgameTechnique(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{},
		models.TemporalFlow{Volatility: 20, Endgame: 30, Middlegame: 40},
		0, 50,
	)
	require.Equal(t, models.EndgameTechnique, Classify(sig))
}

func TestClassifyOpenTactical(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{},
		models.TemporalFlow{Volatility: 70, Middlegame: 60},
		3, 25,
	)
	require.Equal(t, models.OpenTactical, Classify(sig))
}

func TestClassifySacrificialAttackNeedsBigSwing(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{},
		models.TemporalFlow{Volatility: 55, Middlegame: 60},
		4, 25,
	)
	require.Equal(t, models.SacrificialAttack, Classify(sig))

	// Same shape but every swing at/below 5 falls through.
	for i := range sig.CriticalMoments {
		sig.CriticalMoments[i].Magnitude = 4
	}
	require.NotEqual(t, models.SacrificialAttack, Classify(sig))
}

func TestClassifyUnknownWhenNothingMatches(t *testing.T) {
	sig := sigWith(
		models.QuadrantProfile{},
		models.TemporalFlow{Volatility: 55, Middlegame: 60, Opening: 10},
		0, 25,
	)
	require.Equal(t, models.UnknownArchetype, Classify(sig))
}

func TestRulesOrderIsStable(t *testing.T) {
	order := Rules()
	require.Equal(t, models.KingsideAttack, order[0])
	require.Equal(t, models.QueensideExpansion, order[1])
	require.Equal(t, models.CentralDomination, order[2])
	require.Equal(t, models.PositionalSqueeze, order[len(order)-1])
}
