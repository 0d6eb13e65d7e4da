package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
)

const campColumns = `id, fighter_id, name, location, focus, start_date, end_date, created_at`

type CampRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCampRepository(sqlDB *sql.DB, logger zerolog.Logger) *CampRepository {
	return &CampRepository{db: sqlDB, logger: logger}
}

func (r *CampRepository) Create(ctx context.Context, camp *domain.TrainingCamp) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO training_camps (`+campColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, camp.FighterID, camp.Name, camp.Location, camp.Focus,
		camp.StartDate.UTC(), camp.EndDate.UTC(), camp.CreatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}

	camp.ID = id
	return nil
}

// ListByFighter returns camps with the latest start first.
func (r *CampRepository) ListByFighter(ctx context.Context, fighterID string, limit int) ([]domain.TrainingCamp, error) {
	limit = clampLimit(limit, constants.DefaultListLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campColumns+` FROM training_camps
		WHERE fighter_id = $1
		ORDER BY start_date DESC
		LIMIT $2`,
		fighterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	camps := []domain.TrainingCamp{}
	for rows.Next() {
		var c domain.TrainingCamp
		if err := rows.Scan(&c.ID, &c.FighterID, &c.Name, &c.Location, &c.Focus,
			&c.StartDate, &c.EndDate, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.StartDate = c.StartDate.UTC()
		c.EndDate = c.EndDate.UTC()
		c.CreatedAt = c.CreatedAt.UTC()
		camps = append(camps, c)
	}
	return camps, rows.Err()
}
