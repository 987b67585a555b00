package models

import "time"

// FallbackTier classifies how degraded a prediction attempt was.
type FallbackTier string

const (
	TierFull              FallbackTier = "full"
	TierPartialTactical   FallbackTier = "partial_sf"
	TierPartialHybrid     FallbackTier = "partial_hybrid"
	TierArchetypeFallback FallbackTier = "archetype_fallback"
	TierExcluded          FallbackTier = "excluded"
)

// GameSample is one benchmark input: a finished game plus its truth.
type GameSample struct {
	GameID   string       `json:"game_id"`
	Moves    []string     `json:"moves"`
	PGN      string       `json:"pgn,omitempty"`
	Outcome  Outcome      `json:"outcome"`
	Metadata GameMetadata `json:"metadata,omitempty"`
}

// PredictionAttempt is the benchmark harness's unit of work: one
// (game, truncation) pair pushed through both predictors and scored
// against the known result. Immutable once scored.
type PredictionAttempt struct {
	GameID          string           `json:"game_id"`
	MoveNumber      int              `json:"move_number"`
	FEN             string           `json:"fen"`
	Archetype       Archetype        `json:"archetype"`
	TacticalOutcome Outcome          `json:"tactical_outcome"`
	HybridOutcome   Outcome          `json:"hybrid_outcome"`
	Source          PredictionSource `json:"source"`
	ActualOutcome   Outcome          `json:"actual_outcome"`
	TacticalCorrect bool             `json:"tactical_correct"`
	HybridCorrect   bool             `json:"hybrid_correct"`
	Confidence      float64          `json:"confidence"`
	FallbackTier    FallbackTier     `json:"fallback_tier"`
	ScoredAt        time.Time        `json:"scored_at"`
}

// FallbackStats discloses how many samples landed in each tier so the
// consumer can judge how trustworthy the aggregate numbers are.
type FallbackStats struct {
	Full              int `json:"full"`
	PartialTactical   int `json:"partial_sf"`
	PartialHybrid     int `json:"partial_hybrid"`
	ArchetypeFallback int `json:"archetype_fallback"`
	Excluded          int `json:"excluded"`
	Skipped           int `json:"skipped"`
}

// ArchetypeAccuracy is the per-archetype score split for one run.
type ArchetypeAccuracy struct {
	Total           int `json:"total"`
	TacticalCorrect int `json:"tactical_correct"`
	HybridCorrect   int `json:"hybrid_correct"`
}

// BenchmarkResult aggregates a run's attempts. Excluded-tier samples count
// toward TotalGames but not toward the accuracy denominators.
type BenchmarkResult struct {
	TotalGames       int                             `json:"total_games"`
	ScoredGames      int                             `json:"scored_games"`
	TacticalAccuracy float64                         `json:"tactical_accuracy"`
	HybridAccuracy   float64                         `json:"hybrid_accuracy"`
	HybridWins       int                             `json:"hybrid_wins"`
	TacticalWins     int                             `json:"tactical_wins"`
	Ties             int                             `json:"ties"`
	PerArchetype     map[Archetype]ArchetypeAccuracy `json:"per_archetype"`
	PValue           float64                         `json:"p_value"`
	SignificancePct  float64                         `json:"significance_pct"`
	FallbackStats    FallbackStats                   `json:"fallback_stats"`
	Attempts         []PredictionAttempt             `json:"attempts,omitempty"`
	StartedAt        time.Time                       `json:"started_at"`
	FinishedAt       time.Time                       `json:"finished_at"`
	TruncationMove   int                             `json:"truncation_move"`
	SearchDepth      int                             `json:"search_depth"`
}
