package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

type fakeLearner struct {
	err   error
	calls int
}

func (f *fakeLearner) Learn(sample models.GameSample) (*models.PatternRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.PatternRecord{ID: "p1"}, nil
}

type fakeMetrics struct {
	errors map[string]int
}

func (f *fakeMetrics) RecordPredictionScored(tier, archetype string) {}
func (f *fakeMetrics) RecordEngineLatency(op string, seconds float64) {}
func (f *fakeMetrics) RecordPatternCount(n int) {}

func (f *fakeMetrics) RecordError(kind string) {
	if f.errors == nil {
		f.errors = make(map[string]int)
	}
	f.errors[kind]++
}

func validGame() *models.GameSample {
	return &models.GameSample{
		GameID:  "g1",
		Moves:   []string{"e4", "e5"},
		Outcome: models.WhiteWins,
	}
}

func TestPipelineLearnsValidGame(t *testing.T) {
	l := &fakeLearner{}
	p := NewLearningPipeline(l, &fakeMetrics{})

	require.NoError(t, p.Process(context.Background(), validGame()))
	require.Equal(t, 1, l.calls)
}

func TestPipelineRejectsInvalidSamples(t *testing.T) {
	l := &fakeLearner{}
	m := &fakeMetrics{}
	p := NewLearningPipeline(l, m)

	require.Error(t, p.Process(context.Background(), nil))

	noID := validGame()
	noID.GameID = ""
	require.Error(t, p.Process(context.Background(), noID))

	noMoves := validGame()
	noMoves.Moves = nil
	require.Error(t, p.Process(context.Background(), noMoves))

	badOutcome := validGame()
	badOutcome.Outcome = "adjourned"
	require.Error(t, p.Process(context.Background(), badOutcome))

	require.Equal(t, 0, l.calls)
	require.Equal(t, 4, m.errors["pipeline_validate"])
}

func TestPipelineThrottlesBurst(t *testing.T) {
	l := &fakeLearner{}
	m := &fakeMetrics{}
	p := NewLearningPipeline(l, m, WithMaxGamesPerSec(1))

	require.NoError(t, p.Process(context.Background(), validGame()))
	require.NoError(t, p.Process(context.Background(), validGame()))
	require.Equal(t, 1, l.calls, "second game inside the window is dropped")
	require.Equal(t, 1, m.errors["pipeline_throttle"])
}

func TestPipelineBuffersOnLearnFailure(t *testing.T) {
	l := &fakeLearner{err: errors.New("store down")}
	m := &fakeMetrics{}
	p := NewLearningPipeline(l, m, WithBufferSize(2))

	require.Error(t, p.Process(context.Background(), validGame()))
	require.Equal(t, 1, len(p.bufCh))
}
