package simulator

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"ChessFlow/internal/domain/models"
	dservice "ChessFlow/internal/domain/service"
)

// Replayer implements the GameSimulator collaborator on top of a real
// chess rules engine. It replays a move list and records, per square, the
// ordered occupancy events the signature extractor consumes.
type Replayer struct{}

// New creates a Replayer.
func New() dservice.GameSimulator {
	return &Replayer{}
}

// Simulate replays a move list in SAN or UCI notation, truncating the
// occupancy history after truncateAt full moves (0 replays everything).
// Unparsable moves are a malformed-input error; the sample should be
// skipped, not retried.
func (r *Replayer) Simulate(moves []string, truncateAt int) (*dservice.SimulationResult, error) {
	game := chess.NewGame()
	for i, text := range moves {
		if err := game.MoveStr(text); err == nil {
			continue
		}
		move, uciErr := chess.UCINotation{}.Decode(game.Position(), text)
		if uciErr != nil {
			return nil, fmt.Errorf("replay move %d %q: %w", i+1, text, uciErr)
		}
		if err := game.Move(move); err != nil {
			return nil, fmt.Errorf("replay move %d %q: %w", i+1, text, err)
		}
	}
	return buildResult(game, truncateAt)
}

// SimulatePGN parses and replays one PGN game.
func (r *Replayer) SimulatePGN(pgn string, truncateAt int) (*dservice.SimulationResult, error) {
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	return buildResult(chess.NewGame(opt), truncateAt)
}

func buildResult(game *chess.Game, truncateAt int) (*dservice.SimulationResult, error) {
	moves := game.Moves()
	positions := game.Positions()

	truncPly := len(moves)
	if truncateAt > 0 && truncateAt*2 < truncPly {
		truncPly = truncateAt * 2
	}

	res := &dservice.SimulationResult{
		TotalMoves: (truncPly + 1) / 2,
		Outcome:    mapOutcome(game.Outcome()),
		Finished:   game.Outcome() != chess.NoOutcome,
	}
	if truncPly < len(positions) {
		res.FEN = positions[truncPly].String()
	} else if len(positions) > 0 {
		res.FEN = positions[len(positions)-1].String()
	}

	for ply := 0; ply < truncPly; ply++ {
		move := moves[ply]
		side := models.SideWhite
		if ply%2 == 1 {
			side = models.SideBlack
		}
		moveNumber := ply/2 + 1

		record(&res.Grid, move.S2(), side, moveNumber)
		if rookTo, ok := castleRookSquare(move, side); ok {
			record(&res.Grid, rookTo, side, moveNumber)
		}
	}

	return res, nil
}

func record(grid *models.OccupancyGrid, sq chess.Square, side models.Side, moveNumber int) {
	file := int(sq.File())
	rank := int(sq.Rank())
	grid[file][rank] = append(grid[file][rank], models.OccupancyEvent{
		Side:       side,
		MoveNumber: moveNumber,
	})
}

// castleRookSquare returns the rook's destination when the move castles,
// since the rook visit is part of the occupancy history too.
func castleRookSquare(move *chess.Move, side models.Side) (chess.Square, bool) {
	rank := chess.Rank1
	if side == models.SideBlack {
		rank = chess.Rank8
	}
	switch {
	case move.HasTag(chess.KingSideCastle):
		return chess.NewSquare(chess.FileF, rank), true
	case move.HasTag(chess.QueenSideCastle):
		return chess.NewSquare(chess.FileD, rank), true
	default:
		return chess.NoSquare, false
	}
}

func mapOutcome(o chess.Outcome) models.Outcome {
	switch o {
	case chess.WhiteWon:
		return models.WhiteWins
	case chess.BlackWon:
		return models.BlackWins
	case chess.Draw:
		return models.Draw
	default:
		return ""
	}
}
