package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
	mid "ChessFlow/internal/middleware"
)

// flakyStream fails its first read pass the way the websocket client
// does: send the error, close both channels, and deliver nothing more
// until the consumer reconnects and reads a fresh pair.
type flakyStream struct {
	sample *models.GameSample

	mu         sync.Mutex
	reads      int
	reconnects int
	connected  bool
}

func (s *flakyStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *flakyStream) Subscribe(ctx context.Context) error { return nil }

func (s *flakyStream) Read(ctx context.Context) (<-chan *models.GameSample, <-chan error) {
	games := make(chan *models.GameSample, 1)
	errs := make(chan error, 1)

	s.mu.Lock()
	s.reads++
	first := s.reads == 1
	s.mu.Unlock()

	if first {
		errs <- errors.New("read: connection reset by peer")
		close(games)
		close(errs)
		return games, errs
	}

	games <- s.sample
	return games, errs
}

func (s *flakyStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.connected = true
	return nil
}

func (s *flakyStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *flakyStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *flakyStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

type recordingLearner struct {
	mu      sync.Mutex
	learned []string
}

func (l *recordingLearner) Learn(sample models.GameSample) (*models.PatternRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.learned = append(l.learned, sample.GameID)
	return &models.PatternRecord{ID: sample.GameID}, nil
}

func (l *recordingLearner) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.learned)
}

func TestCollectorResumesAfterStreamError(t *testing.T) {
	sample := &models.GameSample{GameID: "g1", Moves: []string{"e4"}, Outcome: models.WhiteWins}
	stream := &flakyStream{sample: sample}
	learner := &recordingLearner{}
	pipe := mid.NewLearningPipeline(learner, nopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewGameCollector(stream, pipe, nopMetrics{})
	require.NoError(t, c.Start(ctx))

	// A game arriving after the reconnect must still reach the learner.
	require.Eventually(t, func() bool { return learner.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, stream.reconnectCount(), 1)
}
