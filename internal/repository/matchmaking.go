package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/domain"
)

const matchmakingColumns = `id, fighter_id, weight_class, preferred_date, notes, status, created_at`

type MatchmakingRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchmakingRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchmakingRepository {
	return &MatchmakingRepository{db: sqlDB, logger: logger}
}

// HasPending reports whether the fighter already holds a pending request.
func (r *MatchmakingRepository) HasPending(ctx context.Context, fighterID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matchmaking_requests WHERE fighter_id = $1 AND status = $2`,
		fighterID, string(domain.MatchmakingPending),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a pending request. The partial unique index turns a racing
// second pending request into ErrDuplicate.
func (r *MatchmakingRepository) Create(ctx context.Context, req *domain.MatchmakingRequest) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO matchmaking_requests (`+matchmakingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, req.FighterID, string(req.WeightClass), nullTime(req.PreferredDate), req.Notes,
		string(req.Status), req.CreatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}

	req.ID = id
	return nil
}

func (r *MatchmakingRepository) GetByID(ctx context.Context, id string) (*domain.MatchmakingRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchmakingColumns+` FROM matchmaking_requests WHERE id = $1`, id)
	m, err := scanMatchmaking(row)
	if err != nil {
		return nil, fmt.Errorf("get matchmaking request: %w", classify(err))
	}
	return m, nil
}

// Cancel moves the fighter's own pending request to cancelled. A request
// that is missing or owned by someone else is ErrNotFound; one that is no
// longer pending is ErrStale.
func (r *MatchmakingRepository) Cancel(ctx context.Context, id, fighterID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matchmaking_requests SET status = $1
		WHERE id = $2 AND fighter_id = $3 AND status = $4`,
		string(domain.MatchmakingCancelled), id, fighterID, string(domain.MatchmakingPending),
	)
	if err != nil {
		return err
	}
	if err := requireAffected(res, ErrStale); !errors.Is(err, ErrStale) {
		return err
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.FighterID != fighterID {
		return ErrNotFound
	}
	return ErrStale
}

func (r *MatchmakingRepository) ListByFighter(ctx context.Context, fighterID string, status domain.MatchmakingStatus) ([]domain.MatchmakingRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+matchmakingColumns+` FROM matchmaking_requests
		WHERE fighter_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`,
		fighterID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []domain.MatchmakingRequest{}
	for rows.Next() {
		m, err := scanMatchmaking(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *m)
	}
	return requests, rows.Err()
}

func scanMatchmaking(row rowScanner) (*domain.MatchmakingRequest, error) {
	var m domain.MatchmakingRequest
	var weightClass, status string
	var preferred sql.NullTime
	if err := row.Scan(&m.ID, &m.FighterID, &weightClass, &preferred, &m.Notes, &status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.WeightClass = domain.WeightClass(weightClass)
	m.Status = domain.MatchmakingStatus(status)
	m.PreferredDate = timePtr(preferred)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
