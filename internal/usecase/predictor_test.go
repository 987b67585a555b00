package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/internal/services/calibration"
	"ChessFlow/internal/services/fusion"
	applogger "ChessFlow/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	lgr, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return lgr
}

type stubSimulator struct {
	res          *dservice.SimulationResult
	err          error
	lastTruncate int
}

func (s *stubSimulator) Simulate(moves []string, truncateAt int) (*dservice.SimulationResult, error) {
	s.lastTruncate = truncateAt
	return s.res, s.err
}

func (s *stubSimulator) SimulatePGN(pgn string, truncateAt int) (*dservice.SimulationResult, error) {
	s.lastTruncate = truncateAt
	return s.res, s.err
}

type stubEvaluator struct {
	eval      models.TacticalEvaluation
	err       error
	calls     int
	lastDepth int
}

func (s *stubEvaluator) Evaluate(ctx context.Context, fen string, depth int) (models.TacticalEvaluation, error) {
	s.calls++
	s.lastDepth = depth
	if s.err != nil {
		return models.TacticalEvaluation{}, s.err
	}
	return s.eval, nil
}

func (s *stubEvaluator) Close() error { return nil }

type stubFusion struct {
	pred   *models.HybridPrediction
	delay  time.Duration
	delays []time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stubFusion) Fuse(eval models.TacticalEvaluation, sig *models.Signature, matches []models.PatternMatch) *models.HybridPrediction {
	s.mu.Lock()
	s.calls++
	d := s.delay
	if len(s.delays) > 0 {
		d = s.delays[0]
		s.delays = s.delays[1:]
	}
	s.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	return s.pred
}

func (s *stubFusion) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubIndex struct {
	matches []models.PatternMatch
	added   int
}

func (s *stubIndex) FindSimilar(sig *models.Signature, limit int) []models.PatternMatch {
	return s.matches
}

func (s *stubIndex) AddPattern(sig *models.Signature, outcome models.Outcome, meta models.GameMetadata) *models.PatternRecord {
	s.added++
	return &models.PatternRecord{ID: "p1", Archetype: sig.Archetype, Outcome: outcome}
}

func (s *stubIndex) Size() int { return s.added }

type stubRates struct {
	rate        models.HistoricalRate
	err         error
	invalidated []models.Archetype
}

func (s *stubRates) RateFor(ctx context.Context, a models.Archetype, dominant models.Side) (models.HistoricalRate, error) {
	if s.err != nil {
		return models.HistoricalRate{}, s.err
	}
	return s.rate, nil
}

func (s *stubRates) Invalidate(a models.Archetype) {
	s.invalidated = append(s.invalidated, a)
}

type nopMetrics struct{}

func (nopMetrics) RecordPredictionScored(tier, archetype string) {}
func (nopMetrics) RecordError(kind string) {}
func (nopMetrics) RecordEngineLatency(op string, seconds float64) {}
func (nopMetrics) RecordPatternCount(n int) {}

// centralSimulation builds a replay whose occupancy is concentrated on
// the d4/e5 center squares, classifying as central domination.
func centralSimulation() *dservice.SimulationResult {
	res := &dservice.SimulationResult{
		TotalMoves: 16,
		FEN:        "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
		Outcome:    models.WhiteWins,
		Finished:   true,
	}
	for i := 1; i <= 8; i++ {
		res.Grid[3][3] = append(res.Grid[3][3], models.OccupancyEvent{Side: models.SideWhite, MoveNumber: i})
		res.Grid[4][4] = append(res.Grid[4][4], models.OccupancyEvent{Side: models.SideWhite, MoveNumber: i + 8})
	}
	return res
}

// unclassifiedSimulation builds a replay whose features fall between
// every archetype rule: moderate volatility, no quadrant dominance.
func unclassifiedSimulation() *dservice.SimulationResult {
	res := &dservice.SimulationResult{
		TotalMoves: 4,
		FEN:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Outcome:    models.Draw,
		Finished:   true,
	}
	squares := [][2]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}}
	for _, mv := range []int{1, 3} {
		for _, sq := range squares {
			res.Grid[sq[0]][sq[1]] = append(res.Grid[sq[0]][sq[1]],
				models.OccupancyEvent{Side: models.SideWhite, MoveNumber: mv})
		}
	}
	return res
}

func newTestPredictor(cfg PredictorConfig, sim dservice.GameSimulator, eval dservice.TacticalEvaluator, fe FusionEngine, rates dservice.HistoricalRates, t *testing.T) *Predictor {
	return NewPredictor(cfg, sim, eval, fe, &stubIndex{}, rates, nopMetrics{}, testLogger(t))
}

func TestPredictFullTier(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "d4d5", ScoreCP: 180, Depth: 16}}
	engine := fusion.NewEngine(calibration.NewStore())

	p := newTestPredictor(PredictorConfig{}, sim, eval, engine, &stubRates{}, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"e4"}}, 16)
	require.NoError(t, err)

	require.Equal(t, models.TierFull, out.FallbackTier)
	require.True(t, out.TacticalOK)
	require.Equal(t, models.CentralDomination, out.Signature.Archetype)
	require.NotNil(t, out.Hybrid)
	require.Equal(t, models.SourceFusion, out.Hybrid.Source)
	require.Equal(t, models.WhiteWins, out.Hybrid.PredictedOutcome)
}

func TestPredictTacticalFailureDegradesToPartial(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{err: errors.New("engine stalled")}
	fe := &stubFusion{pred: &models.HybridPrediction{
		PredictedOutcome: models.WhiteWins,
		Source:           models.SourceFusion,
	}}

	p := newTestPredictor(PredictorConfig{EvalTimeout: 10 * time.Millisecond}, sim, eval, fe, &stubRates{}, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"e4"}}, 16)
	require.NoError(t, err)

	require.Equal(t, models.TierPartialTactical, out.FallbackTier)
	require.False(t, out.TacticalOK)
	require.NotNil(t, out.Hybrid)
	require.Equal(t, 3, eval.calls, "one attempt plus two retries")
}

func TestPredictFusionTimeoutFallsBackToHistory(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "d4d5", ScoreCP: 180}}
	fe := &stubFusion{pred: &models.HybridPrediction{}, delay: 300 * time.Millisecond}
	rates := &stubRates{rate: models.HistoricalRate{
		Archetype:   models.CentralDomination,
		WinRate:     0.62,
		DrawRate:    0.24,
		FavoredSide: models.SideWhite,
		SampleSize:  40,
	}}

	p := newTestPredictor(PredictorConfig{FusionTimeout: 20 * time.Millisecond}, sim, eval, fe, rates, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"e4"}}, 16)
	require.NoError(t, err)

	require.Equal(t, models.TierArchetypeFallback, out.FallbackTier)
	require.NotNil(t, out.Hybrid)
	require.Equal(t, models.SourceHistoricalRate, out.Hybrid.Source)
	require.Equal(t, models.WhiteWins, out.Hybrid.PredictedOutcome)
	require.Equal(t, "d4d5", out.Hybrid.RecommendedMove)
}

func TestPredictFusionTimeoutUnknownArchetype(t *testing.T) {
	sim := &stubSimulator{res: unclassifiedSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "a2a3", ScoreCP: 250}}
	fe := &stubFusion{pred: &models.HybridPrediction{}, delay: 300 * time.Millisecond}

	p := newTestPredictor(PredictorConfig{FusionTimeout: 20 * time.Millisecond}, sim, eval, fe, &stubRates{err: errors.New("unused")}, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"a3"}}, 4)
	require.NoError(t, err)

	require.Equal(t, models.UnknownArchetype, out.Signature.Archetype)
	require.Equal(t, models.TierPartialHybrid, out.FallbackTier)
	require.NotNil(t, out.Hybrid)
	require.Equal(t, models.SourceTacticalOnly, out.Hybrid.Source)
	require.Equal(t, models.WhiteWins, out.Hybrid.PredictedOutcome)
	require.InDelta(t, 1.0, out.Hybrid.Probabilities.Sum(), 1e-9)
}

func TestPredictFusionRetriesWithGrowingBudget(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "d4d5", ScoreCP: 180}}
	fe := &stubFusion{
		pred:   &models.HybridPrediction{PredictedOutcome: models.WhiteWins, Source: models.SourceFusion},
		delays: []time.Duration{500 * time.Millisecond, 500 * time.Millisecond},
	}

	p := newTestPredictor(PredictorConfig{FusionTimeout: 30 * time.Millisecond}, sim, eval, fe, &stubRates{}, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"e4"}}, 16)
	require.NoError(t, err)

	// The third attempt has no artificial delay and lands inside its
	// grown budget, so the run still reaches the full tier.
	require.Equal(t, models.TierFull, out.FallbackTier)
	require.NotNil(t, out.Hybrid)
	require.Equal(t, models.SourceFusion, out.Hybrid.Source)
	require.Equal(t, 3, fe.callCount(), "one attempt plus two retries")
}

func TestPredictBothStagesFailExcluded(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{err: errors.New("engine stalled")}
	fe := &stubFusion{pred: &models.HybridPrediction{}, delay: 300 * time.Millisecond}

	cfg := PredictorConfig{EvalTimeout: 10 * time.Millisecond, FusionTimeout: 20 * time.Millisecond}
	p := newTestPredictor(cfg, sim, eval, fe, &stubRates{}, t)
	out, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"e4"}}, 16)
	require.NoError(t, err)

	require.Equal(t, models.TierExcluded, out.FallbackTier)
	require.Nil(t, out.Hybrid)
}

func TestPredictMalformedInput(t *testing.T) {
	sim := &stubSimulator{err: errors.New("illegal move")}
	eval := &stubEvaluator{}
	p := newTestPredictor(PredictorConfig{}, sim, eval, &stubFusion{}, &stubRates{}, t)

	_, err := p.Predict(context.Background(), "g1", models.GameSample{Moves: []string{"zz"}}, 16)
	require.Error(t, err)

	_, err = p.Predict(context.Background(), "g2", models.GameSample{}, 16)
	require.Error(t, err)
}

func TestLearnAddsPatternAndInvalidatesRates(t *testing.T) {
	sim := &stubSimulator{res: centralSimulation()}
	idx := &stubIndex{}
	rates := &stubRates{}
	p := NewPredictor(PredictorConfig{}, sim, &stubEvaluator{}, &stubFusion{}, idx, rates, nopMetrics{}, testLogger(t))

	rec, err := p.Learn(models.GameSample{GameID: "g1", Moves: []string{"e4"}, Outcome: models.WhiteWins})
	require.NoError(t, err)
	require.Equal(t, models.CentralDomination, rec.Archetype)
	require.Equal(t, models.WhiteWins, rec.Outcome)
	require.Equal(t, 1, idx.added)
	require.Equal(t, []models.Archetype{models.CentralDomination}, rates.invalidated)
}
