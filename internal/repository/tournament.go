package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
)

const tournamentColumns = `id, name, description, weight_class, min_tier, location, start_date, end_date,
	max_participants, current_participants, status, created_by, created_at`

type TournamentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTournamentRepository(sqlDB *sql.DB, logger zerolog.Logger) *TournamentRepository {
	return &TournamentRepository{db: sqlDB, logger: logger}
}

func (r *TournamentRepository) Create(ctx context.Context, t *domain.Tournament) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tournaments (`+tournamentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, t.Name, t.Description, string(t.WeightClass), string(t.MinTier), t.Location,
		t.StartDate.UTC(), t.EndDate.UTC(), t.MaxParticipants, t.CurrentParticipants,
		string(t.Status), t.CreatedBy, t.CreatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}

	t.ID = id
	return nil
}

func (r *TournamentRepository) GetByID(ctx context.Context, id string) (*domain.Tournament, error) {
	return getTournament(ctx, r.db, id)
}

// List returns tournaments by start date. An empty status lists all.
func (r *TournamentRepository) List(ctx context.Context, status domain.TournamentStatus, limit int) ([]domain.Tournament, error) {
	limit = clampLimit(limit, constants.DefaultListLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tournamentColumns+` FROM tournaments
		WHERE ($1 = '' OR status = $1)
		ORDER BY start_date ASC, name ASC
		LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := []domain.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

// Join registers fighterID in the tournament. The participant row and the
// counter increment commit together. The (tournament, fighter) key makes a
// repeat join ErrDuplicate; the conditional increment makes a full or
// closed tournament ErrFull.
func (r *TournamentRepository) Join(ctx context.Context, tournamentID, fighterID string, at time.Time) (*domain.Tournament, error) {
	var joined *domain.Tournament
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tournament_participants (tournament_id, fighter_id, joined_at)
			VALUES ($1, $2, $3)`,
			tournamentID, fighterID, at.UTC(),
		)
		if err != nil {
			return classify(err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE tournaments SET current_participants = current_participants + 1
			WHERE id = $1 AND status = $2 AND current_participants < max_participants`,
			tournamentID, string(domain.TournamentUpcoming),
		)
		if err != nil {
			return err
		}
		if err := requireAffected(res, ErrFull); err != nil {
			return err
		}

		joined, err = getTournament(ctx, tx, tournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// IsParticipant is a read-only pre-check. The participants primary key is
// what actually prevents a second entry.
func (r *TournamentRepository) IsParticipant(ctx context.Context, tournamentID, fighterID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1 AND fighter_id = $2`,
		tournamentID, fighterID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func getTournament(ctx context.Context, q DBTX, id string) (*domain.Tournament, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	t, err := scanTournament(row)
	if err != nil {
		return nil, fmt.Errorf("get tournament: %w", classify(err))
	}
	return t, nil
}

func scanTournament(row rowScanner) (*domain.Tournament, error) {
	var t domain.Tournament
	var weightClass, minTier, status string
	err := row.Scan(&t.ID, &t.Name, &t.Description, &weightClass, &minTier, &t.Location,
		&t.StartDate, &t.EndDate, &t.MaxParticipants, &t.CurrentParticipants, &status,
		&t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.WeightClass = domain.WeightClass(weightClass)
	t.MinTier = domain.Tier(minTier)
	t.Status = domain.TournamentStatus(status)
	t.StartDate = t.StartDate.UTC()
	t.EndDate = t.EndDate.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}
