package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/freeeve/uci"

	"ChessFlow/internal/domain/models"
	"ChessFlow/internal/domain/repository"
	"ChessFlow/internal/service/ratelimit"
	"ChessFlow/pkg/logger"
)

// ErrEvalTimeout marks an evaluation abandoned at its context deadline.
var ErrEvalTimeout = errors.New("engine evaluation timed out")

// Config holds the engine process settings.
type Config struct {
	Path    string
	HashMB  int
	Threads int
	MaxRPS  float64
}

// UCIEvaluator implements TacticalEvaluator over a UCI engine process.
// The engine protocol is stateful, so evaluations are serialized; the
// rate limiter paces callers when the binary is a shared or remote
// resource.
type UCIEvaluator struct {
	cfg     Config
	engine  *uci.Engine
	limiter *ratelimit.Limiter
	metrics repository.Metrics
	logger  *logger.Logger
	mu      sync.Mutex
}

// New spawns the engine process and applies its options.
func New(cfg Config, metrics repository.Metrics, lgr *logger.Logger) (*UCIEvaluator, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("engine path required")
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 256
	}
	if cfg.Threads == 0 {
		cfg.Threads = 2
	}

	eng, err := uci.NewEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}

	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}

	lgr.Info("engine started",
		logger.String("path", cfg.Path),
		logger.Int("hash_mb", cfg.HashMB),
		logger.Int("threads", cfg.Threads))

	return &UCIEvaluator{
		cfg:     cfg,
		engine:  eng,
		limiter: ratelimit.New(),
		metrics: metrics,
		logger:  lgr,
	}, nil
}

type evalResult struct {
	eval models.TacticalEvaluation
	err  error
}

// Evaluate analyzes a FEN to the requested depth. The context deadline is
// the evaluation budget: when it expires the caller gets ErrEvalTimeout
// and the in-flight search result is discarded when it eventually lands.
func (u *UCIEvaluator) Evaluate(ctx context.Context, fen string, depth int) (models.TacticalEvaluation, error) {
	if u.cfg.MaxRPS > 0 {
		if err := u.limiter.Wait(ctx, "engine", u.cfg.MaxRPS, u.cfg.MaxRPS); err != nil {
			return models.TacticalEvaluation{}, fmt.Errorf("engine rate limit: %w", err)
		}
	}

	start := time.Now()
	done := make(chan evalResult, 1)
	go func() {
		done <- u.search(fen, depth)
	}()

	select {
	case <-ctx.Done():
		u.metrics.RecordEngineLatency("timeout", time.Since(start).Seconds())
		return models.TacticalEvaluation{}, fmt.Errorf("%w: %v", ErrEvalTimeout, ctx.Err())
	case res := <-done:
		if res.err != nil {
			u.metrics.RecordEngineLatency("error", time.Since(start).Seconds())
			return models.TacticalEvaluation{}, res.err
		}
		u.metrics.RecordEngineLatency("ok", time.Since(start).Seconds())
		return res.eval, nil
	}
}

func (u *UCIEvaluator) search(fen string, depth int) evalResult {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.engine.SetFEN(fen); err != nil {
		return evalResult{err: fmt.Errorf("set fen: %w", err)}
	}

	results, err := u.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return evalResult{err: fmt.Errorf("engine search: %w", err)}
	}
	if len(results.Results) == 0 {
		return evalResult{err: fmt.Errorf("engine returned no lines")}
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}

	// Engine scores are from the side to move; normalize to White.
	score := best.Score
	if strings.Contains(fen, " b ") {
		score = -score
	}

	eval := models.TacticalEvaluation{
		BestMove:           results.BestMove,
		ScoreCP:            score,
		Mate:               best.Mate,
		Depth:              best.Depth,
		PrincipalVariation: best.BestMoves,
	}
	if best.Mate {
		eval.MateDistance = score
		eval.ScoreCP = mateScore(score)
	}
	if eval.BestMove == "" && len(best.BestMoves) > 0 {
		eval.BestMove = best.BestMoves[0]
	}
	return evalResult{eval: eval}
}

// mateScore converts a mate distance into a saturating centipawn value
// so downstream comparisons stay on one scale.
func mateScore(mateIn int) int {
	if mateIn >= 0 {
		return 10000 - mateIn
	}
	return -10000 - mateIn
}

// Close terminates the engine process.
func (u *UCIEvaluator) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.engine != nil {
		u.engine.Close()
		u.engine = nil
	}
	return nil
}
