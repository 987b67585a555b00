package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ChessFlow/internal/domain/models"
	pkgch "ChessFlow/pkg/clickhouse"
	applogger "ChessFlow/pkg/logger"
)

// CHPredictionStore persists scored prediction attempts in ClickHouse and
// serves the calibration bootstrap queries.
type CHPredictionStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, l *applogger.Logger) *CHPredictionStore {
	return &CHPredictionStore{ch: ch, db: ch.DB(), l: l}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS prediction_attempts (
        game_id          String,
        move_number      UInt16,
        fen              String,
        archetype        LowCardinality(String),
        tactical_outcome LowCardinality(String),
        hybrid_outcome   LowCardinality(String),
        source           LowCardinality(String),
        actual_outcome   LowCardinality(String),
        tactical_correct UInt8,
        hybrid_correct   UInt8,
        confidence       Float64,
        fallback_tier    LowCardinality(String),
        scored_at        DateTime64(3)
    ) ENGINE = MergeTree()
    ORDER BY (archetype, scored_at)`,
}

// Init creates the attempts table.
func (s *CHPredictionStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, schema)
}

const insertAttempt = `
    INSERT INTO prediction_attempts
        (game_id, move_number, fen, archetype, tactical_outcome, hybrid_outcome,
         source, actual_outcome, tactical_correct, hybrid_correct, confidence,
         fallback_tier, scored_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert writes one scored attempt.
func (s *CHPredictionStore) Insert(ctx context.Context, a *models.PredictionAttempt) error {
	_, err := s.db.ExecContext(ctx, insertAttempt, insertArgs(a)...)
	if err != nil {
		s.l.Error("clickhouse insert attempt failed",
			applogger.String("game_id", a.GameID),
			applogger.Error(err))
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// InsertBatch writes many attempts in one transaction so the driver can
// batch them into a single insert block.
func (s *CHPredictionStore) InsertBatch(ctx context.Context, attempts []*models.PredictionAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertAttempt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, a := range attempts {
		if _, err := stmt.ExecContext(ctx, insertArgs(a)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("batch attempt %s: %w", a.GameID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.l.Info("attempts persisted", applogger.Int("count", len(attempts)))
	return nil
}

func insertArgs(a *models.PredictionAttempt) []interface{} {
	return []interface{}{
		a.GameID,
		uint16(a.MoveNumber),
		a.FEN,
		string(a.Archetype),
		string(a.TacticalOutcome),
		string(a.HybridOutcome),
		string(a.Source),
		string(a.ActualOutcome),
		boolByte(a.TacticalCorrect),
		boolByte(a.HybridCorrect),
		a.Confidence,
		string(a.FallbackTier),
		a.ScoredAt,
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// CalibrationHistory pages through past scored attempts for seeding the
// calibration state, oldest first within the window.
func (s *CHPredictionStore) CalibrationHistory(ctx context.Context, since time.Time, limit, offset int) ([]models.CalibrationRow, error) {
	const q = `
        SELECT archetype, actual_outcome, hybrid_correct, scored_at
        FROM prediction_attempts
        WHERE scored_at >= ?
        ORDER BY scored_at ASC
        LIMIT ? OFFSET ?
    `
	rows, err := s.db.QueryContext(ctx, q, since, limit, offset)
	if err != nil {
		s.l.Error("clickhouse calibration history query failed", applogger.Error(err))
		return nil, fmt.Errorf("calibration history: %w", err)
	}
	defer rows.Close()

	out := make([]models.CalibrationRow, 0, limit)
	for rows.Next() {
		var (
			row     models.CalibrationRow
			actual  string
			correct uint8
		)
		if err := rows.Scan(&row.Archetype, &actual, &correct, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("scan calibration row: %w", err)
		}
		row.ActualResult = models.Outcome(actual)
		row.PredictedCorrect = correct == 1
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calibration rows: %w", err)
	}
	return out, nil
}

// ArchetypeOutcomes returns the most recent actual outcomes recorded for
// an archetype, newest first.
func (s *CHPredictionStore) ArchetypeOutcomes(ctx context.Context, a models.Archetype, limit int) ([]models.Outcome, error) {
	const q = `
        SELECT actual_outcome
        FROM prediction_attempts
        WHERE archetype = ? AND fallback_tier != 'excluded'
        ORDER BY scored_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, string(a), limit)
	if err != nil {
		s.l.Error("clickhouse archetype outcomes query failed",
			applogger.String("archetype", string(a)),
			applogger.Error(err))
		return nil, fmt.Errorf("archetype outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.Outcome
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, models.Outcome(o))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outcome rows: %w", err)
	}
	return out, nil
}

// Health pings the backing connection.
func (s *CHPredictionStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close releases the connection pool.
func (s *CHPredictionStore) Close() error {
	return s.ch.Close()
}
