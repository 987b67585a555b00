package games

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/freeeve/pgn/v2"
	"github.com/google/uuid"

	"ChessFlow/internal/domain/models"
	dservice "ChessFlow/internal/domain/service"
	"ChessFlow/pkg/logger"
)

// Games shorter than this carry too little occupancy history to score.
const minPlies = 20

// PGNSource supplies benchmark samples from a multi-game PGN file.
type PGNSource struct {
	path   string
	logger *logger.Logger
}

// New creates a sample source over the given PGN file path.
func New(path string, lgr *logger.Logger) dservice.SampleSource {
	return &PGNSource{path: path, logger: lgr}
}

// Fetch scans up to n usable finished games. Unparsable or unfinished
// games are skipped and logged, never surfaced as errors.
func (s *PGNSource) Fetch(ctx context.Context, n int) ([]models.GameSample, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open pgn %s: %w", s.path, err)
	}
	defer f.Close()

	ps := pgn.NewPGNScanner(f)
	samples := make([]models.GameSample, 0, n)
	skipped := 0

	for len(samples) < n && ps.Next() {
		select {
		case <-ctx.Done():
			return samples, ctx.Err()
		default:
		}

		game, err := ps.Scan()
		if err != nil {
			skipped++
			s.logger.Warn("skipping unparsable game", logger.Error(err))
			continue
		}

		sample, ok := toSample(game)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, sample)
	}

	s.logger.Info("pgn samples loaded",
		logger.String("path", s.path),
		logger.Int("samples", len(samples)),
		logger.Int("skipped", skipped))

	if len(samples) == 0 {
		return nil, fmt.Errorf("no usable games in %s", s.path)
	}
	return samples, nil
}

func toSample(game *pgn.Game) (models.GameSample, bool) {
	outcome, ok := resultOutcome(game.Tags["Result"])
	if !ok || len(game.Moves) < minPlies {
		return models.GameSample{}, false
	}

	moves := make([]string, 0, len(game.Moves))
	for _, m := range game.Moves {
		moves = append(moves, uciMove(m))
	}

	return models.GameSample{
		GameID:  uuid.NewString(),
		Moves:   moves,
		Outcome: outcome,
		Metadata: models.GameMetadata{
			Event: game.Tags["Event"],
			White: game.Tags["White"],
			Black: game.Tags["Black"],
			Date:  game.Tags["Date"],
		},
	}, true
}

func uciMove(m pgn.Move) string {
	s := m.From.String() + m.To.String()
	if m.Promote != pgn.NoPiece {
		s += strings.ToLower(m.Promote.String())
	}
	return s
}

func resultOutcome(result string) (models.Outcome, bool) {
	switch result {
	case "1-0":
		return models.WhiteWins, true
	case "0-1":
		return models.BlackWins, true
	case "1/2-1/2":
		return models.Draw, true
	default:
		return "", false
	}
}
