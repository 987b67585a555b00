package models

import "time"

// Outcome is a finished game's result.
type Outcome string

const (
	WhiteWins Outcome = "white_wins"
	BlackWins Outcome = "black_wins"
	Draw      Outcome = "draw"
)

// OutcomeProbabilities is a distribution over the three results.
// Components lie in [0,1] and sum to 1 within floating-point tolerance.
type OutcomeProbabilities struct {
	White float64 `json:"white"`
	Black float64 `json:"black"`
	Draw  float64 `json:"draw"`
}

// Likeliest returns the outcome with the highest probability.
func (p OutcomeProbabilities) Likeliest() Outcome {
	switch {
	case p.White >= p.Black && p.White >= p.Draw:
		return WhiteWins
	case p.Black >= p.White && p.Black >= p.Draw:
		return BlackWins
	default:
		return Draw
	}
}

// Sum returns the total probability mass, for invariant checks.
func (p OutcomeProbabilities) Sum() float64 { return p.White + p.Black + p.Draw }

// TacticalEvaluation is the tactical engine's view of a position.
// Score is centipawns from White's point of view.
type TacticalEvaluation struct {
	BestMove           string   `json:"best_move"`
	ScoreCP            int      `json:"score_cp"`
	MateDistance       int      `json:"mate_distance,omitempty"`
	Mate               bool     `json:"mate"`
	Depth              int      `json:"depth"`
	PrincipalVariation []string `json:"pv,omitempty"`
}

// FavoredSide maps the centipawn score to a predicted side using a
// 100cp neutrality band.
func (t TacticalEvaluation) FavoredSide() Side {
	switch {
	case t.ScoreCP >= 100:
		return SideWhite
	case t.ScoreCP <= -100:
		return SideBlack
	default:
		return SideContested
	}
}

// PredictedOutcome is the tactical-only baseline prediction.
func (t TacticalEvaluation) PredictedOutcome() Outcome {
	switch t.FavoredSide() {
	case SideWhite:
		return WhiteWins
	case SideBlack:
		return BlackWins
	default:
		return Draw
	}
}

// HybridConfidence carries the fused prediction's confidence breakdown.
// Computed fresh per prediction; an output, never authoritative state.
type HybridConfidence struct {
	Overall   float64  `json:"overall"`
	Tactical  float64  `json:"tactical"`
	Strategic float64  `json:"strategic"`
	Alignment float64  `json:"alignment"`
	Rationale []string `json:"rationale"`
}

// TrajectoryMilestone is one expected waypoint of the projected game flow.
type TrajectoryMilestone struct {
	MoveNumber  int    `json:"move_number"`
	Description string `json:"description"`
}

// HybridPrediction is the fusion engine's full output for one position.
type HybridPrediction struct {
	Probabilities    OutcomeProbabilities  `json:"probabilities"`
	PredictedOutcome Outcome               `json:"predicted_outcome"`
	RecommendedMove  string                `json:"recommended_move"`
	MoveRationale    string                `json:"move_rationale"`
	Trajectory       []TrajectoryMilestone `json:"trajectory,omitempty"`
	Confidence       HybridConfidence      `json:"confidence"`
	Archetype        Archetype             `json:"archetype"`
	Source           PredictionSource      `json:"source"`
}

// PredictionSource records which component produced the final estimate.
type PredictionSource string

const (
	SourceFusion         PredictionSource = "fusion"
	SourceHistoricalRate PredictionSource = "historical_rate"
	SourceTacticalOnly   PredictionSource = "tactical_only"
)

// HistoricalRate is the per-archetype win/draw prior served by the
// historical rate lookup, with sample-size-scaled confidence.
type HistoricalRate struct {
	Archetype   Archetype `json:"archetype"`
	WinRate     float64   `json:"win_rate"`
	DrawRate    float64   `json:"draw_rate"`
	FavoredSide Side      `json:"favored_side"`
	SampleSize  int       `json:"sample_size"`
	Confidence  float64   `json:"confidence"`
}

// CalibrationRow is one historical scored prediction read back from the
// persistent store to seed calibration state.
type CalibrationRow struct {
	Archetype        string    `json:"archetype"`
	ActualResult     Outcome   `json:"actual_result"`
	PredictedCorrect bool      `json:"predicted_correct"`
	Timestamp        time.Time `json:"timestamp"`
}
