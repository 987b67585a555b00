package usecase

import (
	"context"
	"fmt"
	"time"

	"ChessFlow/internal/domain/models"
	domrepo "ChessFlow/internal/domain/repository"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/internal/service/history"
	"ChessFlow/internal/services/flow"
	applogger "ChessFlow/pkg/logger"
)

// Engine retries grow the per-attempt budget half again each time.
const (
	defaultExtraRetries = 2
	retryBudgetFactor   = 1.5
)

const defaultRetrievalLimit = 5

// FusionEngine is the predictor's view of the fusion stage.
type FusionEngine interface {
	Fuse(eval models.TacticalEvaluation, sig *models.Signature, matches []models.PatternMatch) *models.HybridPrediction
}

// PatternIndex is the predictor's view of the pattern database.
type PatternIndex interface {
	FindSimilar(sig *models.Signature, limit int) []models.PatternMatch
	AddPattern(sig *models.Signature, outcome models.Outcome, meta models.GameMetadata) *models.PatternRecord
	Size() int
}

// PredictorConfig bounds the two suspending stages.
type PredictorConfig struct {
	EvalTimeout   time.Duration
	FusionTimeout time.Duration
	SearchDepth   int
	ExtraRetries  int
}

// Predictor drives one (game, truncation) pair through the full pipeline:
// simulate, extract, classify, retrieve, evaluate, fuse, calibrate. Every
// degraded path lands in a fallback tier instead of a hard error.
type Predictor struct {
	cfg       PredictorConfig
	simulator dservice.GameSimulator
	evaluator dservice.TacticalEvaluator
	fusion    FusionEngine
	patterns  PatternIndex
	rates     dservice.HistoricalRates
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewPredictor(
	cfg PredictorConfig,
	sim dservice.GameSimulator,
	eval dservice.TacticalEvaluator,
	fusion FusionEngine,
	idx PatternIndex,
	rates dservice.HistoricalRates,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
) *Predictor {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 10 * time.Second
	}
	if cfg.FusionTimeout <= 0 {
		cfg.FusionTimeout = 3 * time.Second
	}
	if cfg.SearchDepth <= 0 {
		cfg.SearchDepth = 16
	}
	if cfg.ExtraRetries <= 0 {
		cfg.ExtraRetries = defaultExtraRetries
	}
	return &Predictor{
		cfg:       cfg,
		simulator: sim,
		evaluator: eval,
		fusion:    fusion,
		patterns:  idx,
		rates:     rates,
		metrics:   metrics,
		logger:    lgr,
	}
}

// Prediction is the pipeline's output for one position.
type Prediction struct {
	GameID       string
	MoveNumber   int
	FEN          string
	Signature    *models.Signature
	Tactical     models.TacticalEvaluation
	TacticalOK   bool
	Hybrid       *models.HybridPrediction
	FallbackTier models.FallbackTier
}

// Predict analyzes one game truncated at the given move. A simulation
// failure is a malformed-input error for the caller to skip; downstream
// timeouts degrade through the fallback tiers instead.
func (p *Predictor) Predict(ctx context.Context, gameID string, sample models.GameSample, truncateAt int) (*Prediction, error) {
	return p.PredictWithDepth(ctx, gameID, sample, truncateAt, p.cfg.SearchDepth)
}

// PredictWithDepth is Predict with a per-request search depth override.
func (p *Predictor) PredictWithDepth(ctx context.Context, gameID string, sample models.GameSample, truncateAt, depth int) (*Prediction, error) {
	if depth <= 0 {
		depth = p.cfg.SearchDepth
	}
	sim, err := p.simulate(sample, truncateAt)
	if err != nil {
		p.metrics.RecordError("malformed_input")
		return nil, fmt.Errorf("simulate %s: %w", gameID, err)
	}

	sig := flow.ExtractSignature(&sim.Grid, sim.TotalMoves)

	eval, evalErr := p.evaluateWithRetries(ctx, sim.FEN, depth)
	tacticalOK := evalErr == nil
	if !tacticalOK {
		p.metrics.RecordError("tactical_timeout")
		p.logger.Warn("tactical evaluation degraded",
			applogger.String("game_id", gameID),
			applogger.Error(evalErr))
		eval = models.TacticalEvaluation{}
	}

	hybrid, fusionErr := p.runFusion(ctx, eval, sig)
	fusionOK := fusionErr == nil

	out := &Prediction{
		GameID:     gameID,
		MoveNumber: sim.TotalMoves,
		FEN:        sim.FEN,
		Signature:  sig,
		Tactical:   eval,
		TacticalOK: tacticalOK,
		Hybrid:     hybrid,
	}

	switch {
	case tacticalOK && fusionOK:
		out.FallbackTier = models.TierFull
	case !tacticalOK && fusionOK:
		out.FallbackTier = models.TierPartialTactical
	case tacticalOK && !fusionOK:
		p.metrics.RecordError("fusion_timeout")
		out.Hybrid, out.FallbackTier = p.rebuildWithoutFusion(ctx, eval, sig)
	default:
		p.metrics.RecordError("fusion_timeout")
		out.FallbackTier = models.TierExcluded
		out.Hybrid = nil
	}

	return out, nil
}

func (p *Predictor) simulate(sample models.GameSample, truncateAt int) (*dservice.SimulationResult, error) {
	if len(sample.Moves) > 0 {
		return p.simulator.Simulate(sample.Moves, truncateAt)
	}
	if sample.PGN != "" {
		return p.simulator.SimulatePGN(sample.PGN, truncateAt)
	}
	return nil, fmt.Errorf("sample has no moves")
}

// evaluateWithRetries calls the tactical evaluator with a growing
// per-attempt budget until an attempt succeeds or retries run out.
func (p *Predictor) evaluateWithRetries(ctx context.Context, fen string, depth int) (models.TacticalEvaluation, error) {
	budget := p.cfg.EvalTimeout
	var lastErr error

	for attempt := 0; attempt <= p.cfg.ExtraRetries; attempt++ {
		if ctx.Err() != nil {
			return models.TacticalEvaluation{}, ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, budget)
		eval, err := p.evaluator.Evaluate(attemptCtx, fen, depth)
		cancel()
		if err == nil {
			return eval, nil
		}

		lastErr = err
		budget = time.Duration(float64(budget) * retryBudgetFactor)
	}
	return models.TacticalEvaluation{}, lastErr
}

// runFusion retries the fusion stage with the same growing per-attempt
// budget as the evaluator until an attempt finishes or retries run out.
func (p *Predictor) runFusion(ctx context.Context, eval models.TacticalEvaluation, sig *models.Signature) (*models.HybridPrediction, error) {
	budget := p.cfg.FusionTimeout
	var lastErr error

	for attempt := 0; attempt <= p.cfg.ExtraRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pred, err := p.fuseOnce(ctx, eval, sig, budget)
		if err == nil {
			return pred, nil
		}

		lastErr = err
		budget = time.Duration(float64(budget) * retryBudgetFactor)
	}
	return nil, lastErr
}

// fuseOnce bounds one fusion attempt (pattern retrieval included) by its
// own deadline so a stalled retrieval degrades instead of hanging a run.
func (p *Predictor) fuseOnce(ctx context.Context, eval models.TacticalEvaluation, sig *models.Signature, budget time.Duration) (*models.HybridPrediction, error) {
	fusionCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan *models.HybridPrediction, 1)
	go func() {
		matches := p.patterns.FindSimilar(sig, defaultRetrievalLimit)
		done <- p.fusion.Fuse(eval, sig, matches)
	}()

	select {
	case <-fusionCtx.Done():
		return nil, fmt.Errorf("fusion stage: %w", fusionCtx.Err())
	case pred := <-done:
		return pred, nil
	}
}

// rebuildWithoutFusion substitutes the archetype-history prediction when
// the archetype is known, otherwise rebuilds a tactical-only estimate
// from the partial data.
func (p *Predictor) rebuildWithoutFusion(ctx context.Context, eval models.TacticalEvaluation, sig *models.Signature) (*models.HybridPrediction, models.FallbackTier) {
	if sig.Archetype != models.UnknownArchetype {
		rate, err := p.rates.RateFor(ctx, sig.Archetype, sig.DominantSide)
		if err == nil {
			return history.Prediction(rate, eval.BestMove), models.TierArchetypeFallback
		}
		p.logger.Warn("historical rate lookup failed",
			applogger.String("archetype", string(sig.Archetype)),
			applogger.Error(err))
	}
	return tacticalOnlyPrediction(eval, sig), models.TierPartialHybrid
}

// tacticalOnlyPrediction spreads probability around the engine's score
// when no strategic estimate is available.
func tacticalOnlyPrediction(eval models.TacticalEvaluation, sig *models.Signature) *models.HybridPrediction {
	shift := float64(eval.ScoreCP) / 1000 * 0.3
	if shift > 0.3 {
		shift = 0.3
	}
	if shift < -0.3 {
		shift = -0.3
	}
	probs := models.OutcomeProbabilities{
		White: 1.0/3 + shift,
		Black: 1.0/3 - shift,
		Draw:  1.0 / 3,
	}

	return &models.HybridPrediction{
		Probabilities:    probs,
		PredictedOutcome: probs.Likeliest(),
		RecommendedMove:  eval.BestMove,
		MoveRationale:    "engine line without strategic context",
		Confidence: models.HybridConfidence{
			Overall:   40,
			Tactical:  60,
			Rationale: []string{"fusion unavailable, tactical estimate only"},
		},
		Archetype: sig.Archetype,
		Source:    models.SourceTacticalOnly,
	}
}

// SimilarPatterns extracts the signature of a truncated game and returns
// the closest stored patterns without running the tactical engine.
func (p *Predictor) SimilarPatterns(sample models.GameSample, truncateAt, limit int) (*models.Signature, []models.PatternMatch, error) {
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	sim, err := p.simulate(sample, truncateAt)
	if err != nil {
		return nil, nil, fmt.Errorf("simulate %s: %w", sample.GameID, err)
	}
	sig := flow.ExtractSignature(&sim.Grid, sim.TotalMoves)
	return sig, p.patterns.FindSimilar(sig, limit), nil
}

// Learn folds a finished game into the pattern database and refreshes the
// archetype's cached rate.
func (p *Predictor) Learn(sample models.GameSample) (*models.PatternRecord, error) {
	sim, err := p.simulate(sample, 0)
	if err != nil {
		return nil, fmt.Errorf("learn %s: %w", sample.GameID, err)
	}
	if !sim.Finished && sample.Outcome == "" {
		return nil, fmt.Errorf("learn %s: game has no outcome", sample.GameID)
	}

	outcome := sample.Outcome
	if outcome == "" {
		outcome = sim.Outcome
	}

	sig := flow.ExtractSignature(&sim.Grid, sim.TotalMoves)
	rec := p.patterns.AddPattern(sig, outcome, sample.Metadata)
	p.rates.Invalidate(sig.Archetype)
	p.metrics.RecordPatternCount(p.patterns.Size())

	p.logger.Info("pattern learned",
		applogger.String("game_id", sample.GameID),
		applogger.String("archetype", string(sig.Archetype)),
		applogger.String("outcome", string(outcome)))
	return rec, nil
}
