package flow

import (
	"math"

	"ChessFlow/internal/domain/models"
)

// rule pairs a predicate with the archetype it selects. Rules are
// evaluated strictly in slice order and the first match wins; ties in
// feature magnitude never reorder them.
type rule struct {
	archetype models.Archetype
	matches   func(f features) bool
}

// features is the classifier's read-only view of a signature.
type features struct {
	quadrants    models.QuadrantProfile
	temporal     models.TemporalFlow
	criticals    []models.CriticalMoment
	totalMoves   int
	kingsideAway float64
	queensideMax float64
	centerMag    float64
}

var classifierRules = []rule{
	{models.KingsideAttack, func(f features) bool {
		return f.kingsideAway > 60 && f.temporal.Volatility > 40
	}},
	{models.QueensideExpansion, func(f features) bool {
		return f.queensideMax > 60
	}},
	{models.CentralDomination, func(f features) bool {
		return f.centerMag > 70
	}},
	{models.EndgameTechnique, func(f features) bool {
		return f.totalMoves > 40 && f.temporal.Endgame != 0 && f.temporal.Volatility < 30
	}},
	{models.OpenTactical, func(f features) bool {
		return f.temporal.Volatility > 60 && len(f.criticals) >= 3
	}},
	{models.ClosedManeuvering, func(f features) bool {
		return f.temporal.Volatility < 25 && f.totalMoves > 30
	}},
	{models.ProphylacticDefense, func(f features) bool {
		return math.Abs(f.temporal.Middlegame) < 20 && f.temporal.Volatility < 40
	}},
	{models.PieceHarmony, func(f features) bool {
		return f.centerMag > 40 && f.temporal.Volatility < 50
	}},
	{models.SacrificialAttack, func(f features) bool {
		if len(f.criticals) < 4 {
			return false
		}
		for _, cm := range f.criticals {
			if cm.Magnitude > 5 {
				return true
			}
		}
		return false
	}},
	{models.PositionalSqueeze, func(f features) bool {
		return f.temporal.Endgame > f.temporal.Opening && f.temporal.Volatility < 40
	}},
}

// Classify maps a signature onto the archetype set via the ordered rule
// list, returning unknown when nothing matches.
func Classify(sig *models.Signature) models.Archetype {
	f := features{
		quadrants:  sig.Quadrants,
		temporal:   sig.Temporal,
		criticals:  sig.CriticalMoments,
		totalMoves: sig.TotalMoves,
		// Enemy-half kingside pressure: White attacks into the Black
		// half, so the opposing quadrant carries the attack signal.
		kingsideAway: math.Max(math.Abs(sig.Quadrants.KingsideBlack), math.Abs(sig.Quadrants.KingsideWhite)),
		queensideMax: math.Max(math.Abs(sig.Quadrants.QueensideWhite), math.Abs(sig.Quadrants.QueensideBlack)),
		centerMag:    math.Abs(sig.Quadrants.Center),
	}

	for _, r := range classifierRules {
		if r.matches(f) {
			return r.archetype
		}
	}
	return models.UnknownArchetype
}

// Rules exposes the ordered archetype list for introspection and tests.
func Rules() []models.Archetype {
	out := make([]models.Archetype, len(classifierRules))
	for i, r := range classifierRules {
		out[i] = r.archetype
	}
	return out
}
