package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
	"ChessFlow/internal/services/calibration"
	"ChessFlow/internal/services/fusion"
)

type captureStore struct {
	batches [][]*models.PredictionAttempt
}

func (c *captureStore) Init(ctx context.Context) error { return nil }

func (c *captureStore) Insert(ctx context.Context, a *models.PredictionAttempt) error { return nil }

func (c *captureStore) InsertBatch(ctx context.Context, attempts []*models.PredictionAttempt) error {
	c.batches = append(c.batches, attempts)
	return nil
}

func (c *captureStore) CalibrationHistory(ctx context.Context, since time.Time, limit, offset int) ([]models.CalibrationRow, error) {
	return nil, nil
}

func (c *captureStore) ArchetypeOutcomes(ctx context.Context, a models.Archetype, limit int) ([]models.Outcome, error) {
	return nil, nil
}

func (c *captureStore) Health(ctx context.Context) error { return nil }

func (c *captureStore) Close() error { return nil }

type capturePublisher struct {
	published int
}

func (c *capturePublisher) Publish(ctx context.Context, a *models.PredictionAttempt) error {
	c.published++
	return nil
}

func (c *capturePublisher) PublishBatch(ctx context.Context, attempts []*models.PredictionAttempt) error {
	c.published += len(attempts)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

type fixedSource struct {
	samples []models.GameSample
}

func (f *fixedSource) Fetch(ctx context.Context, n int) ([]models.GameSample, error) {
	return f.samples, nil
}

func newTestBenchmark(t *testing.T, cfg BenchmarkConfig, samples []models.GameSample) (*BenchmarkUseCase, *captureStore, *capturePublisher) {
	t.Helper()
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "d4d5", ScoreCP: 180, Depth: 16}}
	calib := calibration.NewStore()
	engine := fusion.NewEngine(calib)
	predictor := NewPredictor(PredictorConfig{}, sim, eval, engine, &stubIndex{}, &stubRates{}, nopMetrics{}, testLogger(t))

	store := &captureStore{}
	pub := &capturePublisher{}
	b := NewBenchmarkUseCase(cfg, predictor, &fixedSource{samples: samples}, calib, store, pub, nopMetrics{}, testLogger(t))
	return b, store, pub
}

func TestRunScoresAndPersists(t *testing.T) {
	samples := []models.GameSample{
		{GameID: "g1", Moves: []string{"e4"}, Outcome: models.WhiteWins},
		{GameID: "g2", Moves: []string{"e4"}, Outcome: models.WhiteWins},
		{GameID: "g3", Moves: []string{"e4"}, Outcome: models.WhiteWins},
		{GameID: "g4", Moves: []string{"e4"}, Outcome: models.BlackWins},
		{GameID: "g5", Outcome: models.Draw}, // no moves, skipped
	}
	b, store, pub := newTestBenchmark(t, BenchmarkConfig{TruncationMove: 16}, samples)

	result, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, PhaseDone, b.Phase())

	require.Equal(t, 5, result.TotalGames)
	require.Equal(t, 4, result.ScoredGames)
	require.Equal(t, 1, result.FallbackStats.Skipped)
	require.Equal(t, 4, result.FallbackStats.Full)

	// Both predictors say white wins on every sample, so they agree on
	// three hits and one miss.
	require.InDelta(t, 0.75, result.TacticalAccuracy, 1e-9)
	require.InDelta(t, 0.75, result.HybridAccuracy, 1e-9)
	require.Equal(t, 0, result.HybridWins)
	require.Equal(t, 0, result.TacticalWins)
	require.Equal(t, 4, result.Ties)
	require.InDelta(t, 1.0, result.PValue, 1e-9)
	require.InDelta(t, 0.0, result.SignificancePct, 1e-9)

	acc := result.PerArchetype[models.CentralDomination]
	require.Equal(t, 4, acc.Total)
	require.Equal(t, 3, acc.HybridCorrect)
	require.Equal(t, 3, acc.TacticalCorrect)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 4)
	require.Equal(t, 4, pub.published)
}

func TestRunWithParamsOverridesTruncationAndDepth(t *testing.T) {
	samples := []models.GameSample{
		{GameID: "g1", Moves: []string{"e4"}, Outcome: models.WhiteWins},
	}
	sim := &stubSimulator{res: centralSimulation()}
	eval := &stubEvaluator{eval: models.TacticalEvaluation{BestMove: "d4d5", ScoreCP: 180, Depth: 16}}
	calib := calibration.NewStore()
	engine := fusion.NewEngine(calib)
	predictor := NewPredictor(PredictorConfig{SearchDepth: 16}, sim, eval, engine, &stubIndex{}, &stubRates{}, nopMetrics{}, testLogger(t))
	b := NewBenchmarkUseCase(BenchmarkConfig{TruncationMove: 20}, predictor, &fixedSource{samples: samples},
		calib, &captureStore{}, &capturePublisher{}, nopMetrics{}, testLogger(t))

	result, err := b.RunWithParams(context.Background(), RunParams{
		SampleCount:    1,
		TruncationMove: 25,
		SearchDepth:    8,
	})
	require.NoError(t, err)

	require.Equal(t, 25, sim.lastTruncate)
	require.Equal(t, 8, eval.lastDepth)
	require.Equal(t, 25, result.TruncationMove)
	require.Equal(t, 8, result.SearchDepth)

	// Zero fields fall back to the configured defaults.
	result, err = b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 20, sim.lastTruncate)
	require.Equal(t, 16, eval.lastDepth)
	require.Equal(t, 20, result.TruncationMove)
	require.Equal(t, 16, result.SearchDepth)
}

func TestRunOnSamplesEmptyInput(t *testing.T) {
	b, _, _ := newTestBenchmark(t, BenchmarkConfig{}, nil)
	_, err := b.RunOnSamples(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, PhaseIdle, b.Phase())
}

func TestRunHonorsCancellation(t *testing.T) {
	samples := []models.GameSample{
		{GameID: "g1", Moves: []string{"e4"}, Outcome: models.WhiteWins},
		{GameID: "g2", Moves: []string{"e4"}, Outcome: models.WhiteWins},
	}
	b, _, _ := newTestBenchmark(t, BenchmarkConfig{TruncationMove: 16, Cooldown: time.Minute}, samples)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.RunOnSamples(ctx, samples)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregateSignificantDifference(t *testing.T) {
	// 100 paired attempts: hybrid correct on 80, tactical on 50, with a
	// 30-attempt disagreement gap. Under the null the gap is six standard
	// deviations out.
	attempts := make([]models.PredictionAttempt, 0, 100)
	add := func(n int, hybrid, tactical bool) {
		for i := 0; i < n; i++ {
			a := models.PredictionAttempt{
				Archetype:       models.CentralDomination,
				TacticalOutcome: models.WhiteWins,
				HybridOutcome:   models.WhiteWins,
				ActualOutcome:   models.WhiteWins,
				HybridCorrect:   hybrid,
				TacticalCorrect: tactical,
				FallbackTier:    models.TierFull,
			}
			attempts = append(attempts, a)
		}
	}
	add(50, true, true)
	add(30, true, false)
	add(20, false, false)

	b, _, _ := newTestBenchmark(t, BenchmarkConfig{}, nil)
	result := b.aggregate(attempts, models.FallbackStats{Full: 100}, time.Now())

	require.Equal(t, 100, result.ScoredGames)
	require.InDelta(t, 0.50, result.TacticalAccuracy, 1e-9)
	require.InDelta(t, 0.80, result.HybridAccuracy, 1e-9)
	require.Equal(t, 30, result.HybridWins)
	require.Equal(t, 0, result.TacticalWins)
	require.Less(t, result.PValue, 0.01)
	require.Greater(t, result.SignificancePct, 99.0)
}

func TestBinomialPValue(t *testing.T) {
	require.InDelta(t, 1.0, binomialPValue(100, 0), 1e-9)
	require.InDelta(t, 1.0, binomialPValue(0, 0), 1e-9)
	require.Less(t, binomialPValue(100, 30), 1e-6)
	// Sign of the difference must not matter.
	require.InDelta(t, binomialPValue(100, 12), binomialPValue(100, -12), 1e-12)
}
