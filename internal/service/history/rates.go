package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChessFlow/internal/domain/models"
	"ChessFlow/internal/domain/repository"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/pkg/cache"
	"ChessFlow/pkg/logger"
)

const (
	defaultTTL = 5 * time.Minute

	// Dominant-side agreement nudges the served win rate.
	sideAgreementBonus = 0.05

	// Sample sizes at or above this earn full data confidence.
	fullConfidenceSamples = 50
)

// RateService serves per-archetype win/draw priors. Rates start from the
// static definition table, are re-estimated from stored outcomes when the
// prediction store has enough history, and sit behind a short TTL cache.
type RateService struct {
	store  repository.PredictionStore
	cache  cache.Service
	logger *logger.Logger
	ttl    time.Duration
}

// New creates a rate service. The store may be nil, in which case the
// static table is the only source.
func New(store repository.PredictionStore, c cache.Service, lgr *logger.Logger, ttl time.Duration) dservice.HistoricalRates {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RateService{store: store, cache: c, logger: lgr, ttl: ttl}
}

// RateFor returns the archetype's historical rate adjusted by the
// observed dominant side, with confidence scaled by sample size.
func (r *RateService) RateFor(ctx context.Context, a models.Archetype, dominant models.Side) (models.HistoricalRate, error) {
	key := cache.GenerateKeyWithParams("chessflow:rates", string(a))

	var rate models.HistoricalRate
	if r.cache != nil {
		if err := r.cache.Get(ctx, key, &rate); err == nil {
			return adjustForSide(rate, dominant), nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("rate cache read failed", logger.String("archetype", string(a)), logger.Error(err))
		}
	}

	rate = r.computeRate(ctx, a)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, rate, r.ttl); err != nil {
			r.logger.Warn("rate cache write failed", logger.String("archetype", string(a)), logger.Error(err))
		}
	}
	return adjustForSide(rate, dominant), nil
}

// computeRate blends stored outcomes over the static prior. Store
// failures degrade to the prior rather than erroring: a rate lookup must
// always produce a usable answer.
func (r *RateService) computeRate(ctx context.Context, a models.Archetype) models.HistoricalRate {
	def := models.DefinitionFor(a)
	rate := models.HistoricalRate{
		Archetype:   a,
		WinRate:     def.WinRate,
		DrawRate:    def.DrawRate,
		FavoredSide: def.FavoredSide,
		Confidence:  40,
	}

	if r.store == nil {
		return rate
	}

	outcomes, err := r.store.ArchetypeOutcomes(ctx, a, 500)
	if err != nil {
		r.logger.Warn("archetype outcome query failed",
			logger.String("archetype", string(a)),
			logger.Error(err))
		return rate
	}
	if len(outcomes) == 0 {
		return rate
	}

	var favoredWins, draws int
	for _, o := range outcomes {
		switch {
		case o == models.Draw:
			draws++
		case outcomeFavors(o, def.FavoredSide):
			favoredWins++
		}
	}

	n := float64(len(outcomes))
	rate.WinRate = float64(favoredWins) / n
	rate.DrawRate = float64(draws) / n
	rate.SampleSize = len(outcomes)
	rate.Confidence = sampleConfidence(len(outcomes))
	return rate
}

// Invalidate drops the cached rate after learning a new outcome.
func (r *RateService) Invalidate(a models.Archetype) {
	if r.cache == nil {
		return
	}
	key := cache.GenerateKeyWithParams("chessflow:rates", string(a))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn("rate cache invalidation failed",
			logger.String("archetype", string(a)),
			logger.Error(err))
	}
}

// Prediction builds an archetype-history prediction used when the fusion
// engine is unavailable but the signature is known.
func Prediction(rate models.HistoricalRate, bestMove string) *models.HybridPrediction {
	probs := probabilitiesFromRate(rate)
	return &models.HybridPrediction{
		Probabilities:    probs,
		PredictedOutcome: probs.Likeliest(),
		RecommendedMove:  bestMove,
		MoveRationale:    fmt.Sprintf("historical %s games favor this course", rate.Archetype),
		Confidence: models.HybridConfidence{
			Overall:   clamp(rate.Confidence, 10, 95),
			Strategic: rate.Confidence,
			Rationale: []string{fmt.Sprintf("archetype history over %d games", rate.SampleSize)},
		},
		Archetype: rate.Archetype,
		Source:    models.SourceHistoricalRate,
	}
}

func probabilitiesFromRate(rate models.HistoricalRate) models.OutcomeProbabilities {
	lose := 1 - rate.WinRate - rate.DrawRate
	if lose < 0 {
		lose = 0
	}
	var p models.OutcomeProbabilities
	switch rate.FavoredSide {
	case models.SideWhite:
		p = models.OutcomeProbabilities{White: rate.WinRate, Black: lose, Draw: rate.DrawRate}
	case models.SideBlack:
		p = models.OutcomeProbabilities{White: lose, Black: rate.WinRate, Draw: rate.DrawRate}
	default:
		even := (1 - rate.DrawRate) / 2
		p = models.OutcomeProbabilities{White: even, Black: even, Draw: rate.DrawRate}
	}
	total := p.Sum()
	if total <= 0 {
		return models.OutcomeProbabilities{White: 1.0 / 3, Black: 1.0 / 3, Draw: 1.0 / 3}
	}
	p.White /= total
	p.Black /= total
	p.Draw /= total
	return p
}

// adjustForSide nudges the win rate when the observed dominant side
// matches or opposes the archetype's usual favored side.
func adjustForSide(rate models.HistoricalRate, dominant models.Side) models.HistoricalRate {
	if dominant == models.SideContested || rate.FavoredSide == models.SideContested {
		return rate
	}
	if dominant == rate.FavoredSide {
		rate.WinRate = clamp(rate.WinRate+sideAgreementBonus, 0, 1)
	} else {
		rate.WinRate = clamp(rate.WinRate-sideAgreementBonus, 0, 1)
	}
	return rate
}

func outcomeFavors(o models.Outcome, side models.Side) bool {
	return (o == models.WhiteWins && side == models.SideWhite) ||
		(o == models.BlackWins && side == models.SideBlack)
}

// sampleConfidence scales from 40 (prior only) to 90 at full sample size.
func sampleConfidence(n int) float64 {
	frac := float64(n) / fullConfidenceSamples
	if frac > 1 {
		frac = 1
	}
	return 40 + 50*frac
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
