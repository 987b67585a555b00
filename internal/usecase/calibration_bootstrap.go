package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "ChessFlow/internal/domain/repository"
	"ChessFlow/internal/services/calibration"
	applogger "ChessFlow/pkg/logger"
)

const bootstrapPageSize = 500

// BootstrapCalibration replays persisted scored attempts into the
// calibration store at startup so accuracy windows survive restarts.
// Paginates until the limit or the history is exhausted; rows with
// labels from retired archetypes are skipped by the store.
func BootstrapCalibration(
	ctx context.Context,
	store domrepo.PredictionStore,
	calib *calibration.Store,
	since time.Time,
	limit int,
	lgr *applogger.Logger,
) (int, error) {
	if limit <= 0 {
		limit = 10000
	}

	seeded := 0
	for offset := 0; offset < limit; offset += bootstrapPageSize {
		page := bootstrapPageSize
		if remaining := limit - offset; remaining < page {
			page = remaining
		}

		rows, err := store.CalibrationHistory(ctx, since, page, offset)
		if err != nil {
			return seeded, fmt.Errorf("calibration history page at %d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		n, err := calib.Seed(rows)
		seeded += n
		if err != nil {
			lgr.Warn("calibration rows skipped during bootstrap",
				applogger.Int("offset", offset),
				applogger.Error(err))
		}

		if len(rows) < page {
			break
		}
	}

	lgr.Info("calibration bootstrapped",
		applogger.Int("rows", seeded),
		applogger.String("since", since.Format(time.RFC3339)))
	return seeded, nil
}
