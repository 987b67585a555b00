package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ChessFlow/internal/domain/models"
	domrepo "ChessFlow/internal/domain/repository"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/internal/services/calibration"
	applogger "ChessFlow/pkg/logger"
)

// BenchmarkPhase is the harness's externally visible state.
type BenchmarkPhase string

const (
	PhaseIdle        BenchmarkPhase = "idle"
	PhaseFetching    BenchmarkPhase = "fetching"
	PhaseAnalyzing   BenchmarkPhase = "analyzing"
	PhaseAggregating BenchmarkPhase = "aggregating"
	PhaseDone        BenchmarkPhase = "done"
)

// BenchmarkConfig shapes one run. Cooldown paces the engine between
// samples so a shared engine process is not saturated.
type BenchmarkConfig struct {
	SampleCount    int
	TruncationMove int
	Cooldown       time.Duration
}

// BenchmarkUseCase replays finished games truncated at a fixed move,
// predicts the result with both the tactical baseline and the hybrid
// pipeline, and scores the two against each other.
type BenchmarkUseCase struct {
	cfg       BenchmarkConfig
	predictor *Predictor
	source    dservice.SampleSource
	calib     *calibration.Store
	store     domrepo.PredictionStore
	publisher domrepo.AttemptPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	mu    sync.Mutex
	phase BenchmarkPhase
}

func NewBenchmarkUseCase(
	cfg BenchmarkConfig,
	predictor *Predictor,
	source dservice.SampleSource,
	calib *calibration.Store,
	store domrepo.PredictionStore,
	publisher domrepo.AttemptPublisher,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
) *BenchmarkUseCase {
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = 100
	}
	if cfg.TruncationMove <= 0 {
		cfg.TruncationMove = 20
	}
	return &BenchmarkUseCase{
		cfg:       cfg,
		predictor: predictor,
		source:    source,
		calib:     calib,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    lgr,
		phase:     PhaseIdle,
	}
}

// Phase reports the current run phase for status endpoints.
func (b *BenchmarkUseCase) Phase() BenchmarkPhase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *BenchmarkUseCase) setPhase(p BenchmarkPhase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
}

// RunParams override the configured defaults for one run. Zero fields
// keep the defaults.
type RunParams struct {
	SampleCount    int
	TruncationMove int
	SearchDepth    int
}

func (b *BenchmarkUseCase) normalize(p RunParams) RunParams {
	if p.SampleCount <= 0 {
		p.SampleCount = b.cfg.SampleCount
	}
	if p.TruncationMove <= 0 {
		p.TruncationMove = b.cfg.TruncationMove
	}
	if p.SearchDepth <= 0 {
		p.SearchDepth = b.predictor.cfg.SearchDepth
	}
	return p
}

// Run fetches a fresh sample set and benchmarks it with the configured
// defaults.
func (b *BenchmarkUseCase) Run(ctx context.Context) (*models.BenchmarkResult, error) {
	return b.RunWithParams(ctx, RunParams{})
}

// RunWithCount is Run with a per-request sample count override.
func (b *BenchmarkUseCase) RunWithCount(ctx context.Context, n int) (*models.BenchmarkResult, error) {
	return b.RunWithParams(ctx, RunParams{SampleCount: n})
}

// RunWithParams fetches a fresh sample set and benchmarks it with
// per-request overrides for sample count, truncation move, and engine
// search depth.
func (b *BenchmarkUseCase) RunWithParams(ctx context.Context, p RunParams) (*models.BenchmarkResult, error) {
	p = b.normalize(p)
	b.setPhase(PhaseFetching)
	samples, err := b.source.Fetch(ctx, p.SampleCount)
	if err != nil {
		b.setPhase(PhaseIdle)
		return nil, fmt.Errorf("fetch samples: %w", err)
	}
	return b.runOnSamples(ctx, samples, p)
}

// RunOnSamples benchmarks a caller-provided sample set with the
// configured defaults.
func (b *BenchmarkUseCase) RunOnSamples(ctx context.Context, samples []models.GameSample) (*models.BenchmarkResult, error) {
	return b.runOnSamples(ctx, samples, b.normalize(RunParams{}))
}

// runOnSamples benchmarks a sample set. Samples run sequentially so
// engine latency stays comparable across the run.
func (b *BenchmarkUseCase) runOnSamples(ctx context.Context, samples []models.GameSample, p RunParams) (*models.BenchmarkResult, error) {
	if len(samples) == 0 {
		b.setPhase(PhaseIdle)
		return nil, fmt.Errorf("no samples to benchmark")
	}

	b.setPhase(PhaseAnalyzing)
	started := time.Now().UTC()

	attempts := make([]models.PredictionAttempt, 0, len(samples))
	var stats models.FallbackStats

	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			b.setPhase(PhaseIdle)
			return nil, err
		}

		attempt, err := b.analyzeSample(ctx, sample, p)
		if err != nil {
			stats.Skipped++
			b.logger.Warn("sample skipped",
				applogger.String("game_id", sample.GameID),
				applogger.Error(err))
			continue
		}

		countTier(&stats, attempt.FallbackTier)
		attempts = append(attempts, *attempt)

		if b.cfg.Cooldown > 0 && i < len(samples)-1 {
			select {
			case <-ctx.Done():
				b.setPhase(PhaseIdle)
				return nil, ctx.Err()
			case <-time.After(b.cfg.Cooldown):
			}
		}
	}

	b.setPhase(PhaseAggregating)
	result := b.aggregate(attempts, stats, started)
	result.TotalGames = len(samples)
	result.TruncationMove = p.TruncationMove
	result.SearchDepth = p.SearchDepth

	b.persist(ctx, attempts)
	b.setPhase(PhaseDone)

	b.logger.Info("benchmark finished",
		applogger.Int("total", result.TotalGames),
		applogger.Int("scored", result.ScoredGames),
		applogger.Float64("tactical_accuracy", result.TacticalAccuracy),
		applogger.Float64("hybrid_accuracy", result.HybridAccuracy),
		applogger.Float64("p_value", result.PValue))
	return result, nil
}

// analyzeSample runs one game through the predictor and scores the
// attempt against the known outcome.
func (b *BenchmarkUseCase) analyzeSample(ctx context.Context, sample models.GameSample, p RunParams) (*models.PredictionAttempt, error) {
	pred, err := b.predictor.PredictWithDepth(ctx, sample.GameID, sample, p.TruncationMove, p.SearchDepth)
	if err != nil {
		return nil, err
	}

	attempt := &models.PredictionAttempt{
		GameID:        sample.GameID,
		MoveNumber:    pred.MoveNumber,
		FEN:           pred.FEN,
		Archetype:     pred.Signature.Archetype,
		ActualOutcome: sample.Outcome,
		FallbackTier:  pred.FallbackTier,
		ScoredAt:      time.Now().UTC(),
	}

	if pred.TacticalOK {
		attempt.TacticalOutcome = pred.Tactical.PredictedOutcome()
		attempt.TacticalCorrect = attempt.TacticalOutcome == sample.Outcome
	}

	if pred.Hybrid != nil {
		attempt.HybridOutcome = pred.Hybrid.PredictedOutcome
		attempt.HybridCorrect = attempt.HybridOutcome == sample.Outcome
		attempt.Source = pred.Hybrid.Source
		attempt.Confidence = pred.Hybrid.Confidence.Overall

		var baseline *bool
		if pred.TacticalOK {
			baseline = &attempt.TacticalCorrect
		}
		b.calib.RecordPredictionOutcome(attempt.Archetype, attempt.HybridCorrect, baseline)
	}

	b.metrics.RecordPredictionScored(string(attempt.FallbackTier), string(attempt.Archetype))
	return attempt, nil
}

// aggregate folds attempts into run totals. Excluded-tier attempts stay
// out of both accuracy denominators; the tactical denominator further
// drops attempts whose engine call failed.
func (b *BenchmarkUseCase) aggregate(attempts []models.PredictionAttempt, stats models.FallbackStats, started time.Time) *models.BenchmarkResult {
	result := &models.BenchmarkResult{
		PerArchetype:  make(map[models.Archetype]models.ArchetypeAccuracy),
		FallbackStats: stats,
		Attempts:      attempts,
		StartedAt:     started,
		FinishedAt:    time.Now().UTC(),
	}

	var tacticalScored, tacticalCorrect int
	var hybridScored, hybridCorrect int
	var paired, pairedHybrid, pairedTactical int

	for _, a := range attempts {
		if a.FallbackTier == models.TierExcluded {
			continue
		}
		result.ScoredGames++

		acc := result.PerArchetype[a.Archetype]
		acc.Total++

		tacticalOK := a.TacticalOutcome != ""
		if tacticalOK {
			tacticalScored++
			if a.TacticalCorrect {
				tacticalCorrect++
				acc.TacticalCorrect++
			}
		}

		hybridScored++
		if a.HybridCorrect {
			hybridCorrect++
			acc.HybridCorrect++
		}
		result.PerArchetype[a.Archetype] = acc

		if tacticalOK {
			paired++
			switch {
			case a.HybridCorrect && !a.TacticalCorrect:
				pairedHybrid++
			case a.TacticalCorrect && !a.HybridCorrect:
				pairedTactical++
			}
		}
	}

	result.HybridWins = pairedHybrid
	result.TacticalWins = pairedTactical
	result.Ties = paired - pairedHybrid - pairedTactical

	if tacticalScored > 0 {
		result.TacticalAccuracy = float64(tacticalCorrect) / float64(tacticalScored)
	}
	if hybridScored > 0 {
		result.HybridAccuracy = float64(hybridCorrect) / float64(hybridScored)
	}
	if paired > 0 {
		result.PValue = binomialPValue(pairedHybrid+pairedTactical+result.Ties, pairedHybrid-pairedTactical)
		result.SignificancePct = 100 * (1 - result.PValue)
	} else {
		result.PValue = 1
	}
	return result
}

// binomialPValue runs a two-sided normal approximation of the binomial
// test on the hybrid-versus-tactical win difference over n paired
// attempts, under the null of no difference (p = 0.5, variance n/4).
func binomialPValue(n, diff int) float64 {
	if n == 0 {
		return 1
	}
	z := math.Abs(float64(diff)) / math.Sqrt(float64(n)*0.25)
	return math.Erfc(z / math.Sqrt2)
}

// persist writes attempts to the store and the attempts topic. Both are
// best effort; a benchmark result is still returned when they fail.
func (b *BenchmarkUseCase) persist(ctx context.Context, attempts []models.PredictionAttempt) {
	if len(attempts) == 0 {
		return
	}

	refs := make([]*models.PredictionAttempt, len(attempts))
	for i := range attempts {
		refs[i] = &attempts[i]
	}

	if b.store != nil {
		if err := b.store.InsertBatch(ctx, refs); err != nil {
			b.metrics.RecordError("store_insert")
			b.logger.Error("persist attempts", applogger.Error(err))
		}
	}
	if b.publisher != nil {
		if err := b.publisher.PublishBatch(ctx, refs); err != nil {
			b.metrics.RecordError("publish_attempts")
			b.logger.Error("publish attempts", applogger.Error(err))
		}
	}
}

func countTier(stats *models.FallbackStats, tier models.FallbackTier) {
	switch tier {
	case models.TierFull:
		stats.Full++
	case models.TierPartialTactical:
		stats.PartialTactical++
	case models.TierPartialHybrid:
		stats.PartialHybrid++
	case models.TierArchetypeFallback:
		stats.ArchetypeFallback++
	case models.TierExcluded:
		stats.Excluded++
	}
}
