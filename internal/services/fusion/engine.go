package fusion

import (
	"fmt"
	"math"
	"strings"

	"ChessFlow/internal/domain/models"
	"ChessFlow/internal/services/calibration"
)

// Tactical score influence: each 1000 centipawns shifts outcome
// probability by at most this much.
const scoreShiftPer1000CP = 0.3

// Alignment scores by how the two predictors' favored sides relate.
const (
	alignmentAgree     = 85.0
	alignmentContested = 65.0
	alignmentConflict  = 40.0
)

// Raw confidence blend weights.
const (
	tacticalWeight  = 0.40
	strategicWeight = 0.35
	alignmentWeight = 0.25
)

// Engine fuses a tactical evaluation with the strategic signature and
// pattern retrieval into one calibrated prediction.
type Engine struct {
	calibration *calibration.Store
}

// NewEngine creates a fusion engine backed by the given calibration state.
func NewEngine(cal *calibration.Store) *Engine {
	return &Engine{calibration: cal}
}

// Fuse combines the tactical and strategic estimates. The returned
// probabilities always sum to 1 and the overall confidence is calibrated
// against the archetype's measured accuracy.
func (e *Engine) Fuse(eval models.TacticalEvaluation, sig *models.Signature, matches []models.PatternMatch) *models.HybridPrediction {
	def := models.DefinitionFor(sig.Archetype)

	probs := outcomeProbabilities(def, eval)
	alignment := alignmentScore(eval.FavoredSide(), sig.DominantSide)
	tactical := tacticalConfidence(eval)
	strategic := strategicConfidence(def, matches)

	raw := tactical*tacticalWeight + strategic*strategicWeight + alignment*alignmentWeight
	overall, rationale := e.calibration.CalibratedConfidence(sig.Archetype, raw)
	rationale = append([]string{alignmentNote(eval.FavoredSide(), sig.DominantSide)}, rationale...)

	return &models.HybridPrediction{
		Probabilities:    probs,
		PredictedOutcome: probs.Likeliest(),
		RecommendedMove:  eval.BestMove,
		MoveRationale:    moveRationale(eval.BestMove, sig.FlowDirection),
		Trajectory:       trajectory(sig, def),
		Confidence: models.HybridConfidence{
			Overall:   overall,
			Tactical:  tactical,
			Strategic: strategic,
			Alignment: alignment,
			Rationale: rationale,
		},
		Archetype: sig.Archetype,
		Source:    models.SourceFusion,
	}
}

// outcomeProbabilities starts from the archetype's historical prior and
// tilts it by the tactical score, then renormalizes.
func outcomeProbabilities(def models.ArchetypeDefinition, eval models.TacticalEvaluation) models.OutcomeProbabilities {
	var p models.OutcomeProbabilities
	loseRate := 1 - def.WinRate - def.DrawRate
	if loseRate < 0 {
		loseRate = 0
	}

	switch def.FavoredSide {
	case models.SideWhite:
		p = models.OutcomeProbabilities{White: def.WinRate, Black: loseRate, Draw: def.DrawRate}
	case models.SideBlack:
		p = models.OutcomeProbabilities{White: loseRate, Black: def.WinRate, Draw: def.DrawRate}
	default:
		even := (1 - def.DrawRate) / 2
		p = models.OutcomeProbabilities{White: even, Black: even, Draw: def.DrawRate}
	}

	shift := float64(eval.ScoreCP) / 1000 * scoreShiftPer1000CP
	shift = clamp(shift, -scoreShiftPer1000CP, scoreShiftPer1000CP)
	if eval.Mate {
		if eval.ScoreCP >= 0 {
			shift = scoreShiftPer1000CP
		} else {
			shift = -scoreShiftPer1000CP
		}
	}

	p.White = clamp(p.White+shift, 0, 1)
	p.Black = clamp(p.Black-shift, 0, 1)

	total := p.Sum()
	if total <= 0 {
		return models.OutcomeProbabilities{White: 1.0 / 3, Black: 1.0 / 3, Draw: 1.0 / 3}
	}
	p.White /= total
	p.Black /= total
	p.Draw /= total
	return p
}

func alignmentScore(tactical, strategic models.Side) float64 {
	switch {
	case tactical == strategic:
		return alignmentAgree
	case strategic == models.SideContested || tactical == models.SideContested:
		return alignmentContested
	default:
		return alignmentConflict
	}
}

func alignmentNote(tactical, strategic models.Side) string {
	switch {
	case tactical == strategic:
		return fmt.Sprintf("tactical and strategic estimates agree on %s", tactical)
	case strategic == models.SideContested || tactical == models.SideContested:
		return "one estimate sees a contested position"
	default:
		return fmt.Sprintf("tactical favors %s while the game flow favors %s", tactical, strategic)
	}
}

// tacticalConfidence grows with score magnitude and saturates; a forced
// mate is as certain as the pipeline allows.
func tacticalConfidence(eval models.TacticalEvaluation) float64 {
	if eval.Mate {
		return 95
	}
	return clamp(50+math.Abs(float64(eval.ScoreCP))/20, 0, 95)
}

// strategicConfidence averages retrieval confidence, falling back to the
// archetype prior when recall is empty.
func strategicConfidence(def models.ArchetypeDefinition, matches []models.PatternMatch) float64 {
	if len(matches) == 0 {
		return def.WinRate * 100
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.Confidence
	}
	return clamp(sum/float64(len(matches)), 0, 100)
}

// moveRationale reports whether the tactically best move also serves the
// strategic trajectory, judged by the destination square's board region.
func moveRationale(move string, flow models.FlowDirection) string {
	region := moveRegion(move)
	if region == "" {
		return "tactically strongest continuation"
	}
	if regionMatchesFlow(region, flow) {
		return fmt.Sprintf("tactically strongest and sustains the %s trajectory", flow)
	}
	return fmt.Sprintf("tactically optimal but potentially trajectory-shifting (%s play against a %s flow)", region, flow)
}

// moveRegion extracts the destination region from a UCI move like e2e4.
func moveRegion(move string) string {
	move = strings.TrimSpace(move)
	if len(move) < 4 {
		return ""
	}
	file := move[2]
	rank := move[3]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return ""
	}
	if (file == 'd' || file == 'e') && (rank == '4' || rank == '5') {
		return "central"
	}
	if file >= 'e' {
		return "kingside"
	}
	return "queenside"
}

func regionMatchesFlow(region string, flow models.FlowDirection) bool {
	switch flow {
	case models.FlowKingside:
		return region == "kingside"
	case models.FlowQueenside:
		return region == "queenside"
	case models.FlowCentral:
		return region == "central"
	case models.FlowDiagonal:
		return region == "kingside" || region == "queenside"
	default:
		return true
	}
}

// trajectory projects expected milestones over the archetype's horizon.
func trajectory(sig *models.Signature, def models.ArchetypeDefinition) []models.TrajectoryMilestone {
	if def.Horizon <= 0 {
		return nil
	}
	start := sig.TotalMoves

	themes := trajectoryThemes(sig.Archetype, sig.DominantSide)
	step := def.Horizon / len(themes)
	if step < 1 {
		step = 1
	}

	out := make([]models.TrajectoryMilestone, 0, len(themes))
	move := start
	for _, theme := range themes {
		move += step
		if move > start+def.Horizon {
			move = start + def.Horizon
		}
		out = append(out, models.TrajectoryMilestone{MoveNumber: move, Description: theme})
	}
	return out
}

func trajectoryThemes(a models.Archetype, side models.Side) []string {
	actor := "the attacker"
	if side == models.SideWhite {
		actor = "White"
	} else if side == models.SideBlack {
		actor = "Black"
	}

	switch a {
	case models.KingsideAttack, models.KingHunt:
		return []string{
			fmt.Sprintf("%s piles pieces toward the enemy king", actor),
			"pawn storm opens lines near the castled king",
			"decisive tactics against the exposed king",
		}
	case models.QueensideExpansion, models.MinorityAttack:
		return []string{
			fmt.Sprintf("%s gains queenside space", actor),
			"pawn breaks create a weak queenside target",
			"pressure converts into a material or structural edge",
		}
	case models.CentralDomination, models.PieceHarmony:
		return []string{
			fmt.Sprintf("%s consolidates central control", actor),
			"central space cramps the defender's pieces",
			"the central bind converts into a winning plan",
		}
	case models.EndgameTechnique, models.PositionalSqueeze, models.FortressDefense:
		return []string{
			"pieces trade toward a favorable endgame",
			"the stronger side improves king and pawn placement",
			"technique decides the simplified position",
		}
	case models.OpenTactical, models.SacrificialAttack:
		return []string{
			"sharp play keeps both kings unsafe",
			"a tactical blow changes the material balance",
		}
	case models.ClosedManeuvering, models.ProphylacticDefense:
		return []string{
			"slow maneuvering behind fixed pawn chains",
			"a well-timed break decides the closed struggle",
		}
	default:
		return []string{"the position's character is still forming"}
	}
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
