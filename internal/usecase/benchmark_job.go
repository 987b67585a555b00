package usecase

import (
	"context"
	"fmt"

	"ChessFlow/pkg/logger"
	"ChessFlow/pkg/queue"
)

// BenchmarkJobType routes queued benchmark requests to the job handler.
const BenchmarkJobType = "benchmark.run"

// BenchmarkJobPayload is the queued form of one benchmark request.
type BenchmarkJobPayload struct {
	RequestID      string `json:"request_id"`
	SampleCount    int    `json:"sample_count,omitempty"`
	TruncationMove int    `json:"truncation_move,omitempty"`
	SearchDepth    int    `json:"search_depth,omitempty"`
}

// BenchmarkJob runs a full benchmark in the background. Results are
// persisted through the harness; the job itself only reports success.
type BenchmarkJob struct {
	bench  *BenchmarkUseCase
	logger *logger.Logger
}

func NewBenchmarkJob(bench *BenchmarkUseCase, lgr *logger.Logger) *BenchmarkJob {
	return &BenchmarkJob{bench: bench, logger: lgr}
}

func (j *BenchmarkJob) Name() string { return "benchmark-runner" }

func (j *BenchmarkJob) Type() string { return BenchmarkJobType }

func (j *BenchmarkJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[BenchmarkJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse benchmark payload: %w", err)
	}

	j.logger.Info("benchmark job started",
		logger.String("request_id", req.RequestID),
		logger.Int("sample_count", req.SampleCount))

	result, err := j.bench.RunWithParams(ctx, RunParams{
		SampleCount:    req.SampleCount,
		TruncationMove: req.TruncationMove,
		SearchDepth:    req.SearchDepth,
	})
	if err != nil {
		return fmt.Errorf("benchmark %s: %w", req.RequestID, err)
	}

	j.logger.Info("benchmark job finished",
		logger.String("request_id", req.RequestID),
		logger.Int("scored", result.ScoredGames),
		logger.Float64("hybrid_accuracy", result.HybridAccuracy),
		logger.Float64("significance_pct", result.SignificancePct))
	return nil
}

var _ queue.Job = (*BenchmarkJob)(nil)
