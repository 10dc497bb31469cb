package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/serial-liars/internal/gamesvc/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS round_results (
	id              BIGSERIAL PRIMARY KEY,
	room_id         TEXT        NOT NULL,
	round           INT         NOT NULL,
	bettor_id       TEXT        NOT NULL,
	challenger_id   TEXT        NOT NULL,
	winner_id       TEXT        NOT NULL,
	winner_name     TEXT        NOT NULL,
	reason          TEXT        NOT NULL,
	claimed_count   INT         NOT NULL CHECK (claimed_count BETWEEN 1 AND 10),
	actual_count    INT         NOT NULL CHECK (actual_count >= 0),
	target_digit    INT         NOT NULL CHECK (target_digit BETWEEN 0 AND 9),
	participant_ids TEXT[]      NOT NULL,
	serials         JSONB       NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS round_results_room_idx ON round_results (room_id, created_at DESC);
`

// ResultStore is the append-only ledger of resolved challenges.
type ResultStore struct {
	db *pgxpool.Pool
}

func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, resultsSchema); err != nil {
		return fmt.Errorf("failed to create round_results: %w", err)
	}
	return nil
}

// RecordResult inserts rec and fills in its id and creation time.
func (s *ResultStore) RecordResult(ctx context.Context, rec *models.RoundRecord) error {
	const query = `
INSERT INTO round_results (room_id, round, bettor_id, challenger_id, winner_id, winner_name,
	reason, claimed_count, actual_count, target_digit, participant_ids, serials)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, created_at;
`
	err := s.db.QueryRow(ctx, query,
		rec.RoomID,
		rec.Round,
		rec.BettorID,
		rec.ChallengerID,
		rec.WinnerID,
		rec.WinnerName,
		rec.Reason,
		rec.ClaimedCount,
		rec.ActualCount,
		rec.TargetDigit,
		rec.ParticipantIDs,
		rec.Serials,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// check constraint violation
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return fmt.Errorf("invalid round record for room %s: %s", rec.RoomID, pgErr.ConstraintName)
		}
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// RoomHistory returns the latest resolved rounds of a room, newest first.
func (s *ResultStore) RoomHistory(ctx context.Context, roomID string, limit int) ([]*models.RoundRecord, error) {
	query := `
		SELECT id, room_id, round, bettor_id, challenger_id, winner_id, winner_name, reason,
			claimed_count, actual_count, target_digit, participant_ids, serials, created_at
		FROM round_results
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get room history: %w", err)
	}
	defer rows.Close()

	records := []*models.RoundRecord{}
	for rows.Next() {
		rec := &models.RoundRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.RoomID,
			&rec.Round,
			&rec.BettorID,
			&rec.ChallengerID,
			&rec.WinnerID,
			&rec.WinnerName,
			&rec.Reason,
			&rec.ClaimedCount,
			&rec.ActualCount,
			&rec.TargetDigit,
			&rec.ParticipantIDs,
			&rec.Serials,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *ResultStore) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	stats := &models.PlayerStats{PlayerID: playerID}

	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE $1 = ANY(participant_ids)),
			COUNT(*) FILTER (WHERE winner_id = $1)
		FROM round_results
	`, playerID).Scan(&stats.Played, &stats.Won)
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}

	stats.WinRate = WinRate(stats.Won, stats.Played).StringFixed(2)
	return stats, nil
}

// WinRate is won/played, zero when nothing was played.
func WinRate(won, played int64) decimal.Decimal {
	if played <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(won).Div(decimal.NewFromInt(played))
}
