package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChessFlow/internal/domain/models"
	domrepo "ChessFlow/internal/domain/repository"
)

// Learner is the minimal downstream interface the pipeline needs.
type Learner interface {
	Learn(sample models.GameSample) (*models.PatternRecord, error)
}

// LearningPipeline sits between the live game stream and the learner.
// It validates, throttles, and buffers finished games so a slow learn
// path never backs up the WebSocket reader.
type LearningPipeline struct {
	learner Learner
	metrics domrepo.Metrics

	maxGPS  int
	bufSize int
	bufCh   chan *models.GameSample
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	last    time.Time
}

type PipelineOption func(*LearningPipeline)

// WithMaxGamesPerSec caps how many games per second enter the learn path.
func WithMaxGamesPerSec(n int) PipelineOption {
	return func(p *LearningPipeline) {
		if n > 0 {
			p.maxGPS = n
		}
	}
}

// WithBufferSize sets the holding buffer used when the learner fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *LearningPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewLearningPipeline(learner Learner, metrics domrepo.Metrics, opts ...PipelineOption) *LearningPipeline {
	p := &LearningPipeline{
		learner: learner,
		metrics: metrics,
		maxGPS:  10,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.GameSample, p.bufSize)
	return p
}

// Start launches background retry of buffered games.
func (p *LearningPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case sample := <-p.bufCh:
				if sample == nil {
					continue
				}
				if _, err := p.learner.Learn(*sample); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- sample:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts background flushing.
func (p *LearningPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and throttles one finished game, learning it inline
// and buffering on failure.
func (p *LearningPipeline) Process(ctx context.Context, sample *models.GameSample) error {
	if err := validateSample(sample); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(time.Now()) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if _, err := p.learner.Learn(*sample); err != nil {
		p.metrics.RecordError("pipeline_learn")
		select {
		case p.bufCh <- sample:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	return nil
}

func validateSample(s *models.GameSample) error {
	if s == nil {
		return fmt.Errorf("sample nil")
	}
	if s.GameID == "" {
		return fmt.Errorf("game id empty")
	}
	if len(s.Moves) == 0 && s.PGN == "" {
		return fmt.Errorf("sample has no moves")
	}
	switch s.Outcome {
	case models.WhiteWins, models.BlackWins, models.Draw:
		return nil
	default:
		return fmt.Errorf("outcome %q invalid", s.Outcome)
	}
}

func (p *LearningPipeline) allow(now time.Time) bool {
	if p.maxGPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last.IsZero() || now.Sub(p.last) >= time.Second/time.Duration(p.maxGPS) {
		p.last = now
		return true
	}
	return false
}
