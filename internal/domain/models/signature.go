package models

// Side identifies which color a flow measurement favors.
type Side string

const (
	SideWhite     Side = "white"
	SideBlack     Side = "black"
	SideContested Side = "contested"
)

// FlowDirection classifies where on the board the game's activity ran.
type FlowDirection string

const (
	FlowKingside  FlowDirection = "kingside"
	FlowQueenside FlowDirection = "queenside"
	FlowCentral   FlowDirection = "central"
	FlowDiagonal  FlowDirection = "diagonal"
	FlowBalanced  FlowDirection = "balanced"
)

// OccupancyEvent is one piece visit to a square, produced by the game
// simulator. Immutable.
type OccupancyEvent struct {
	Side       Side `json:"side"`
	MoveNumber int  `json:"move_number"`
}

// OccupancyGrid is the 8x8 visit history, indexed [file][rank] from a1.
type OccupancyGrid [8][8][]OccupancyEvent

// QuadrantProfile holds signed activity balance per board region,
// each clamped to [-100, 100]. Positive favors White.
type QuadrantProfile struct {
	KingsideWhite  float64 `json:"kingside_white"`
	KingsideBlack  float64 `json:"kingside_black"`
	QueensideWhite float64 `json:"queenside_white"`
	QueensideBlack float64 `json:"queenside_black"`
	Center         float64 `json:"center"`
}

// Sum returns the aggregate signed balance across all regions.
func (q QuadrantProfile) Sum() float64 {
	return q.KingsideWhite + q.KingsideBlack + q.QueensideWhite + q.QueensideBlack + q.Center
}

// TemporalFlow holds signed balance per game phase plus overall volatility.
type TemporalFlow struct {
	Opening    float64 `json:"opening"`
	Middlegame float64 `json:"middlegame"`
	Endgame    float64 `json:"endgame"`
	Volatility float64 `json:"volatility"`
}

// CriticalMoment marks a move where the occupancy balance shifted sharply.
type CriticalMoment struct {
	MoveNumber int     `json:"move_number"`
	Magnitude  float64 `json:"magnitude"`
	Side       Side    `json:"side"`
}

// Signature is the structural feature vector derived from a game's
// piece-occupancy history. Derived once per (game, truncation) pair and
// immutable after creation.
type Signature struct {
	Fingerprint     string           `json:"fingerprint"`
	Quadrants       QuadrantProfile  `json:"quadrants"`
	Temporal        TemporalFlow     `json:"temporal"`
	CriticalMoments []CriticalMoment `json:"critical_moments"`
	DominantSide    Side             `json:"dominant_side"`
	FlowDirection   FlowDirection    `json:"flow_direction"`
	Intensity       float64          `json:"intensity"`
	Archetype       Archetype        `json:"archetype"`
	TotalMoves      int              `json:"total_moves"`
}

// Characteristics is the reduced-feature copy of a signature kept on
// pattern records for similarity scoring.
type Characteristics struct {
	FlowDirection FlowDirection `json:"flow_direction"`
	DominantSide  Side          `json:"dominant_side"`
	Intensity     float64       `json:"intensity"`
	Volatility    float64       `json:"volatility"`
	CenterControl float64       `json:"center_control"`
	KingsideLoad  float64       `json:"kingside_load"`
	QueensideLoad float64       `json:"queenside_load"`
}

// Reduce extracts the similarity-relevant features of a signature.
func (s *Signature) Reduce() Characteristics {
	return Characteristics{
		FlowDirection: s.FlowDirection,
		DominantSide:  s.DominantSide,
		Intensity:     s.Intensity,
		Volatility:    s.Temporal.Volatility,
		CenterControl: s.Quadrants.Center,
		KingsideLoad:  s.Quadrants.KingsideWhite + s.Quadrants.KingsideBlack,
		QueensideLoad: s.Quadrants.QueensideWhite + s.Quadrants.QueensideBlack,
	}
}
