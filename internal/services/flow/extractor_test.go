package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

func visit(grid *models.OccupancyGrid, file, rank int, side models.Side, move int) {
	grid[file][rank] = append(grid[file][rank], models.OccupancyEvent{Side: side, MoveNumber: move})
}

// kingsideStormGrid builds heavy white traffic on the kingside black half
// with sharp move-to-move swings.
func kingsideStormGrid() *models.OccupancyGrid {
	grid := &models.OccupancyGrid{}
	move := 1
	for i := 0; i < 20; i++ {
		file := 4 + i%4
		visit(grid, file, 5, models.SideWhite, move)
		visit(grid, file, 6, models.SideWhite, move)
		visit(grid, 7-i%4, 6, models.SideWhite, move)
		visit(grid, file, 5, models.SideWhite, move)
		if i%2 == 0 {
			visit(grid, 0, 2, models.SideBlack, move+1)
		}
		move += 2
	}
	return grid
}

func TestExtractSignatureDeterministic(t *testing.T) {
	a := ExtractSignature(kingsideStormGrid(), 40)
	b := ExtractSignature(kingsideStormGrid(), 40)

	require.Equal(t, a.Fingerprint, b.Fingerprint)
	require.Equal(t, a.Quadrants, b.Quadrants)
	require.Equal(t, a.Archetype, b.Archetype)
	require.Equal(t, a.Temporal, b.Temporal)
}

func TestFingerprintChangesWithGrid(t *testing.T) {
	base := kingsideStormGrid()
	changed := kingsideStormGrid()
	visit(changed, 0, 0, models.SideBlack, 3)

	require.NotEqual(t, fingerprint(base), fingerprint(changed))
}

func TestQuadrantProfileClamped(t *testing.T) {
	grid := &models.OccupancyGrid{}
	for i := 0; i < 200; i++ {
		visit(grid, 6, 6, models.SideWhite, i+1)
	}

	p := quadrantProfile(grid)
	require.Equal(t, 100.0, p.KingsideBlack)
	require.Zero(t, p.QueensideWhite)
}

func TestDominantSideBand(t *testing.T) {
	require.Equal(t, models.SideContested, dominantSide(models.QuadrantProfile{Center: 20}))
	require.Equal(t, models.SideWhite, dominantSide(models.QuadrantProfile{Center: 40}))
	require.Equal(t, models.SideBlack, dominantSide(models.QuadrantProfile{KingsideWhite: -50}))
}

func TestCriticalMomentsThresholdAndCap(t *testing.T) {
	grid := &models.OccupancyGrid{}
	// Seven alternating surges, each a swing of at least 4.
	for move := 1; move <= 14; move += 2 {
		for i := 0; i < 4; i++ {
			visit(grid, i, 1, models.SideWhite, move)
			visit(grid, i, 6, models.SideBlack, move+1)
		}
	}

	moments := criticalMoments(grid)
	require.NotEmpty(t, moments)
	require.LessOrEqual(t, len(moments), 5)
	for _, cm := range moments {
		require.GreaterOrEqual(t, cm.Magnitude, 3.0)
	}
}

func TestVolatilityBounds(t *testing.T) {
	require.Zero(t, volatility(nil))
	require.Zero(t, volatility([]float64{2}))

	// Constant balance has no volatility.
	require.Zero(t, volatility([]float64{3, 3, 3, 3}))

	// Wild swings clamp at 100.
	require.Equal(t, 100.0, volatility([]float64{-50, 50, -50, 50}))
}

func TestTemporalFlowBuckets(t *testing.T) {
	grid := &models.OccupancyGrid{}
	visit(grid, 3, 3, models.SideWhite, 5)  // opening
	visit(grid, 3, 3, models.SideWhite, 15) // middlegame
	visit(grid, 3, 3, models.SideBlack, 30) // endgame

	tf := temporalFlow(grid, 35)
	require.Equal(t, 100.0, tf.Opening)
	require.Equal(t, 100.0, tf.Middlegame)
	require.Equal(t, -100.0, tf.Endgame)
}

func TestFlowDirectionBalancedByDefault(t *testing.T) {
	require.Equal(t, models.FlowBalanced, flowDirection(models.QuadrantProfile{}))

	q := models.QuadrantProfile{KingsideWhite: 40, KingsideBlack: 50, QueensideWhite: 5, Center: 10}
	require.Equal(t, models.FlowKingside, flowDirection(q))
}
