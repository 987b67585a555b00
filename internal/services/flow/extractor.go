package flow

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ChessFlow/internal/domain/models"
)

// Phase boundaries in move numbers.
const (
	openingLastMove    = 10
	middlegameLastMove = 25
)

const (
	quadrantScale     = 5.0
	volatilityScale   = 10.0
	criticalThreshold = 3.0
	maxCriticalCount  = 5
	dominanceMargin   = 1.5
	dominantSideBand  = 30.0
	intensityPerMove  = 30.0
)

// ExtractSignature converts an occupancy grid plus total move count into
// a signature. Deterministic: identical grids always yield identical
// fingerprints and features. The grid dimensions are a caller contract;
// extraction itself never fails on well-formed input.
func ExtractSignature(grid *models.OccupancyGrid, totalMoves int) *models.Signature {
	sig := &models.Signature{
		Fingerprint:     fingerprint(grid),
		Quadrants:       quadrantProfile(grid),
		TotalMoves:      totalMoves,
		CriticalMoments: criticalMoments(grid),
	}
	sig.Temporal = temporalFlow(grid, totalMoves)
	sig.Intensity = intensity(grid, totalMoves)
	sig.FlowDirection = flowDirection(sig.Quadrants)
	sig.DominantSide = dominantSide(sig.Quadrants)
	sig.Archetype = Classify(sig)
	return sig
}

// fingerprint encodes (visitCount, lastVisitingSide) per square row-major,
// hashes the concatenation with a multiply-by-31 rolling hash, and renders
// the result in base 36.
func fingerprint(grid *models.OccupancyGrid) string {
	var sb strings.Builder
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			events := grid[file][rank]
			if len(events) == 0 {
				sb.WriteByte('_')
				continue
			}
			last := events[len(events)-1].Side
			mark := 'w'
			if last == models.SideBlack {
				mark = 'b'
			}
			fmt.Fprintf(&sb, "%d%c", len(events), mark)
		}
	}

	var h uint64
	for _, c := range sb.String() {
		h = h*31 + uint64(c)
	}
	return strconv.FormatUint(h, 36)
}

// quadrantProfile accumulates (whiteVisits - blackVisits) per region.
// Quadrants split the board kingside/queenside by file and White/Black
// half by rank; the 2x2 center block (d4,d5,e4,e5) is measured on top of
// the quadrants, not carved out of them.
func quadrantProfile(grid *models.OccupancyGrid) models.QuadrantProfile {
	var p models.QuadrantProfile
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			balance := squareBalance(grid[file][rank])
			if balance == 0 {
				continue
			}

			kingside := file >= 4
			whiteHalf := rank < 4
			switch {
			case kingside && whiteHalf:
				p.KingsideWhite += balance
			case kingside && !whiteHalf:
				p.KingsideBlack += balance
			case !kingside && whiteHalf:
				p.QueensideWhite += balance
			default:
				p.QueensideBlack += balance
			}

			if file >= 3 && file <= 4 && rank >= 3 && rank <= 4 {
				p.Center += balance
			}
		}
	}

	p.KingsideWhite = clamp(p.KingsideWhite*quadrantScale, -100, 100)
	p.KingsideBlack = clamp(p.KingsideBlack*quadrantScale, -100, 100)
	p.QueensideWhite = clamp(p.QueensideWhite*quadrantScale, -100, 100)
	p.QueensideBlack = clamp(p.QueensideBlack*quadrantScale, -100, 100)
	p.Center = clamp(p.Center*quadrantScale, -100, 100)
	return p
}

func squareBalance(events []models.OccupancyEvent) float64 {
	balance := 0.0
	for _, ev := range events {
		if ev.Side == models.SideWhite {
			balance++
		} else if ev.Side == models.SideBlack {
			balance--
		}
	}
	return balance
}

// temporalFlow buckets each visit by game phase and normalizes the signed
// balance by the bucket's visit count, giving each phase a value in
// [-100, 100]. Volatility is the mean absolute move-to-move balance delta.
func temporalFlow(grid *models.OccupancyGrid, totalMoves int) models.TemporalFlow {
	var sums [3]float64
	var counts [3]int

	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			for _, ev := range grid[file][rank] {
				bucket := 0
				switch {
				case ev.MoveNumber > middlegameLastMove:
					bucket = 2
				case ev.MoveNumber > openingLastMove:
					bucket = 1
				}
				counts[bucket]++
				if ev.Side == models.SideWhite {
					sums[bucket]++
				} else {
					sums[bucket]--
				}
			}
		}
	}

	normalize := func(i int) float64 {
		if counts[i] == 0 {
			return 0
		}
		return sums[i] / float64(counts[i]) * 100
	}

	return models.TemporalFlow{
		Opening:    normalize(0),
		Middlegame: normalize(1),
		Endgame:    normalize(2),
		Volatility: volatility(balanceByMove(grid, totalMoves)),
	}
}

// balanceByMove returns the net white-minus-black visit balance for each
// move number from 1 through totalMoves.
func balanceByMove(grid *models.OccupancyGrid, totalMoves int) []float64 {
	if totalMoves <= 0 {
		return nil
	}
	balances := make([]float64, totalMoves+1)
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			for _, ev := range grid[file][rank] {
				if ev.MoveNumber < 1 || ev.MoveNumber > totalMoves {
					continue
				}
				if ev.Side == models.SideWhite {
					balances[ev.MoveNumber]++
				} else {
					balances[ev.MoveNumber]--
				}
			}
		}
	}
	return balances[1:]
}

func volatility(balances []float64) float64 {
	if len(balances) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(balances); i++ {
		total += math.Abs(balances[i] - balances[i-1])
	}
	mean := total / float64(len(balances)-1)
	return clamp(mean*volatilityScale, 0, 100)
}

// criticalMoments marks moves where the balance delta's absolute value
// reached the threshold, keeping the five most significant.
func criticalMoments(grid *models.OccupancyGrid) []models.CriticalMoment {
	balances := balanceByMoveAll(grid)
	if len(balances) < 2 {
		return nil
	}

	var moments []models.CriticalMoment
	for i := 1; i < len(balances); i++ {
		delta := balances[i] - balances[i-1]
		if math.Abs(delta) < criticalThreshold {
			continue
		}
		side := models.SideWhite
		if delta < 0 {
			side = models.SideBlack
		}
		moments = append(moments, models.CriticalMoment{
			MoveNumber: i + 1,
			Magnitude:  math.Abs(delta),
			Side:       side,
		})
	}

	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].Magnitude > moments[j].Magnitude
	})
	if len(moments) > maxCriticalCount {
		moments = moments[:maxCriticalCount]
	}
	sort.Slice(moments, func(i, j int) bool {
		return moments[i].MoveNumber < moments[j].MoveNumber
	})
	return moments
}

// balanceByMoveAll is balanceByMove without a move-count cap, sized by
// the highest move number seen in the grid.
func balanceByMoveAll(grid *models.OccupancyGrid) []float64 {
	maxMove := 0
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			for _, ev := range grid[file][rank] {
				if ev.MoveNumber > maxMove {
					maxMove = ev.MoveNumber
				}
			}
		}
	}
	return balanceByMove(grid, maxMove)
}

// flowDirection picks the board region whose activity magnitude exceeds
// every rival by the dominance margin. Diagonal pairs (one side's kingside
// against the other's queenside) are checked before defaulting to balanced.
func flowDirection(q models.QuadrantProfile) models.FlowDirection {
	kingside := math.Abs(q.KingsideWhite) + math.Abs(q.KingsideBlack)
	queenside := math.Abs(q.QueensideWhite) + math.Abs(q.QueensideBlack)
	center := math.Abs(q.Center) * 2
	diagA := math.Abs(q.KingsideWhite) + math.Abs(q.QueensideBlack)
	diagB := math.Abs(q.QueensideWhite) + math.Abs(q.KingsideBlack)
	diagonal := math.Max(diagA, diagB)

	switch {
	case kingside > queenside*dominanceMargin && kingside > center*dominanceMargin:
		return models.FlowKingside
	case queenside > kingside*dominanceMargin && queenside > center*dominanceMargin:
		return models.FlowQueenside
	case center > kingside*dominanceMargin && center > queenside*dominanceMargin:
		return models.FlowCentral
	case diagonal > kingside*dominanceMargin && diagonal > queenside*dominanceMargin:
		return models.FlowDiagonal
	default:
		return models.FlowBalanced
	}
}

func dominantSide(q models.QuadrantProfile) models.Side {
	sum := q.Sum()
	switch {
	case sum > dominantSideBand:
		return models.SideWhite
	case sum < -dominantSideBand:
		return models.SideBlack
	default:
		return models.SideContested
	}
}

// intensity measures average occupancy churn per move, clamped to [0, 100].
func intensity(grid *models.OccupancyGrid, totalMoves int) float64 {
	if totalMoves <= 0 {
		return 0
	}
	visits := 0
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			visits += len(grid[file][rank])
		}
	}
	perMove := float64(visits) / float64(totalMoves)
	return clamp(perMove*intensityPerMove, 0, 100)
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
