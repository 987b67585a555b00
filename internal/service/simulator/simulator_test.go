package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ChessFlow/internal/domain/models"
)

// Scholar's mate, White wins in four moves.
var scholarsMate = []string{"e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#"}

func TestSimulateRecordsOccupancy(t *testing.T) {
	res, err := New().Simulate(scholarsMate, 0)
	require.NoError(t, err)

	require.Equal(t, 4, res.TotalMoves)
	require.True(t, res.Finished)
	require.Equal(t, models.WhiteWins, res.Outcome)

	// e4 is file e (4), rank 4 (index 3): one white visit at move 1.
	events := res.Grid[4][3]
	require.Len(t, events, 1)
	require.Equal(t, models.SideWhite, events[0].Side)
	require.Equal(t, 1, events[0].MoveNumber)

	// f7 (file 5, rank 6) was visited by the mating queen at move 4.
	f7 := res.Grid[5][6]
	require.NotEmpty(t, f7)
	last := f7[len(f7)-1]
	require.Equal(t, models.SideWhite, last.Side)
	require.Equal(t, 4, last.MoveNumber)
}

func TestSimulateTruncation(t *testing.T) {
	res, err := New().Simulate(scholarsMate, 2)
	require.NoError(t, err)

	require.Equal(t, 2, res.TotalMoves)
	// The game's final outcome is still known even when the occupancy
	// history stops earlier.
	require.Equal(t, models.WhiteWins, res.Outcome)

	// Qh5 happened at move 3 and must not appear.
	require.Empty(t, res.Grid[7][4])
	require.NotEmpty(t, res.FEN)
}

func TestSimulateCastlingRecordsRook(t *testing.T) {
	moves := []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "O-O"}
	res, err := New().Simulate(moves, 0)
	require.NoError(t, err)

	// White short castle: king to g1, rook to f1, both at move 4.
	require.NotEmpty(t, res.Grid[6][0])
	require.NotEmpty(t, res.Grid[5][0])
	require.Equal(t, 4, res.Grid[5][0][0].MoveNumber)
}

func TestSimulateAcceptsUCIMoves(t *testing.T) {
	res, err := New().Simulate([]string{"e2e4", "e7e5", "g1f3"}, 0)
	require.NoError(t, err)

	require.Equal(t, 2, res.TotalMoves)
	require.False(t, res.Finished)

	events := res.Grid[4][3]
	require.Len(t, events, 1)
	require.Equal(t, models.SideWhite, events[0].Side)

	// f3 (file 5, rank 2) holds the knight from move 2.
	require.NotEmpty(t, res.Grid[5][2])
	require.Equal(t, 2, res.Grid[5][2][0].MoveNumber)
}

func TestSimulateRejectsIllegalMove(t *testing.T) {
	_, err := New().Simulate([]string{"e4", "e4"}, 0)
	require.Error(t, err)
}

func TestSimulatePGN(t *testing.T) {
	pgn := `[Event "test"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1`

	res, err := New().SimulatePGN(pgn, 0)
	require.NoError(t, err)
	require.Equal(t, models.BlackWins, res.Outcome)
	require.Equal(t, 2, res.TotalMoves)
	require.NotEmpty(t, res.Grid[7][3]) // h4
}
