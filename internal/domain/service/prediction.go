package service

import (
	"context"

	"ChessFlow/internal/domain/models"
)

// TacticalEvaluator provides engine analysis of a position. The backing
// engine may be slow, rate-limited, or unavailable; callers must bound
// every call with a context deadline.
type TacticalEvaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (models.TacticalEvaluation, error)
	Close() error
}

// GameSimulator replays a move list and reports per-square occupancy
// history up to an optional truncation point (0 = full game).
type GameSimulator interface {
	Simulate(moves []string, truncateAt int) (*SimulationResult, error)
	SimulatePGN(pgn string, truncateAt int) (*SimulationResult, error)
}

// SimulationResult is the simulator's output for one replay.
type SimulationResult struct {
	Grid       models.OccupancyGrid
	TotalMoves int
	FEN        string
	Outcome    models.Outcome
	Finished   bool
}

// HistoricalRates serves per-archetype win/draw priors, cached with a
// short TTL and invalidated when new outcomes are learned.
type HistoricalRates interface {
	RateFor(ctx context.Context, a models.Archetype, dominant models.Side) (models.HistoricalRate, error)
	Invalidate(a models.Archetype)
}

// SampleSource supplies finished games for benchmarking.
type SampleSource interface {
	Fetch(ctx context.Context, n int) ([]models.GameSample, error)
}
