package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
)

const fightColumns = `id, fighter_id, opponent_name, fight_date, result, method, round, points_earned, notes, created_at`

// maxRecordAttempts bounds retries when a concurrent fight changed the
// fighter's counters between read and write.
const maxRecordAttempts = 3

type FightRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFightRepository(sqlDB *sql.DB, logger zerolog.Logger) *FightRepository {
	return &FightRepository{db: sqlDB, logger: logger}
}

// CreateWithStats inserts fight and replaces the fighter's record with
// apply(prior) in the same transaction. Either both land or neither does.
func (r *FightRepository) CreateWithStats(
	ctx context.Context,
	fight *domain.FightRecord,
	apply func(domain.Record) domain.Record,
) (*domain.FighterProfile, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}

	var profile *domain.FighterProfile
	for attempt := 1; ; attempt++ {
		err = inTx(ctx, r.db, func(tx *sql.Tx) error {
			p, err := getFighter(ctx, tx, fight.FighterID)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO fight_records (`+fightColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				id, fight.FighterID, fight.OpponentName, fight.FightDate.UTC(), string(fight.Result),
				string(fight.Method), fight.Round, fight.PointsEarned, fight.Notes, fight.CreatedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert fight record: %w", classify(err))
			}

			next := apply(p.Record)
			if err := writeRecord(ctx, tx, p.ID, p.Record, next, fight.CreatedAt); err != nil {
				return err
			}

			p.Record = next
			p.UpdatedAt = fight.CreatedAt.UTC()
			profile = p
			return nil
		})
		if !errors.Is(err, ErrStale) || attempt == maxRecordAttempts {
			break
		}
		r.logger.Debug().Str("fighter_id", fight.FighterID).Int("attempt", attempt).Msg("fighter record changed, retrying")
	}
	if err != nil {
		r.logger.Error().Err(err).Str("fighter_id", fight.FighterID).Msg("failed to record fight")
		return nil, err
	}

	fight.ID = id
	return profile, nil
}

func (r *FightRepository) GetByID(ctx context.Context, id string) (*domain.FightRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fightColumns+` FROM fight_records WHERE id = $1`, id)
	f, err := scanFight(row)
	if err != nil {
		return nil, fmt.Errorf("get fight record: %w", classify(err))
	}
	return f, nil
}

// ListByFighter returns the most recent fights first.
func (r *FightRepository) ListByFighter(ctx context.Context, fighterID string, limit int) ([]domain.FightRecord, error) {
	limit = clampLimit(limit, constants.DefaultListLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fightColumns+` FROM fight_records
		WHERE fighter_id = $1
		ORDER BY fight_date DESC, created_at DESC
		LIMIT $2`,
		fighterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fights := []domain.FightRecord{}
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, err
		}
		fights = append(fights, *f)
	}
	return fights, rows.Err()
}

func scanFight(row rowScanner) (*domain.FightRecord, error) {
	var f domain.FightRecord
	var result, method string
	err := row.Scan(&f.ID, &f.FighterID, &f.OpponentName, &f.FightDate, &result, &method,
		&f.Round, &f.PointsEarned, &f.Notes, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Result = domain.FightResult(result)
	f.Method = domain.FightMethod(method)
	f.FightDate = f.FightDate.UTC()
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}
