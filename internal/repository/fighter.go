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

const fighterColumns = `id, user_id, name, nickname, birthday, height_cm, weight_kg, reach_cm,
	stance, country, bio, tier, weight_class, wins, losses, draws, points, knockouts,
	win_percentage, ko_percentage, current_streak, created_at, updated_at`

type FighterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFighterRepository(sqlDB *sql.DB, logger zerolog.Logger) *FighterRepository {
	return &FighterRepository{db: sqlDB, logger: logger}
}

// Create inserts a new profile. A user that already owns one is ErrDuplicate.
func (r *FighterRepository) Create(ctx context.Context, p *domain.FighterProfile) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO fighter_profiles (`+fighterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		id, p.UserID, p.Name, p.Nickname, p.Birthday.UTC(), p.HeightCM, p.WeightKG, p.ReachCM,
		string(p.Stance), p.Country, p.Bio, string(p.Tier), string(p.WeightClass),
		p.Wins, p.Losses, p.Draws, p.Points, p.Knockouts,
		p.WinPercentage, p.KOPercentage, p.CurrentStreak, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}

	p.ID = id
	return nil
}

func (r *FighterRepository) GetByID(ctx context.Context, id string) (*domain.FighterProfile, error) {
	return getFighter(ctx, r.db, id)
}

func (r *FighterRepository) GetByUserID(ctx context.Context, userID string) (*domain.FighterProfile, error) {
	return getFighterByUser(ctx, r.db, userID)
}

func (r *FighterRepository) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fighter_profiles WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update writes the owner-editable fields. Counters and tier are untouched.
func (r *FighterRepository) Update(ctx context.Context, p *domain.FighterProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE fighter_profiles
		SET name = $1, nickname = $2, birthday = $3, height_cm = $4, weight_kg = $5, reach_cm = $6,
			stance = $7, country = $8, bio = $9, weight_class = $10, updated_at = $11
		WHERE id = $12`,
		p.Name, p.Nickname, p.Birthday.UTC(), p.HeightCM, p.WeightKG, p.ReachCM,
		string(p.Stance), p.Country, p.Bio, string(p.WeightClass), p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

func (r *FighterRepository) UpdateTier(ctx context.Context, id string, tier domain.Tier, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fighter_profiles SET tier = $1, updated_at = $2 WHERE id = $3`,
		string(tier), at.UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

// Rankings orders fighters by points, then win percentage, then wins. An
// empty weight class ranks every division together.
func (r *FighterRepository) Rankings(ctx context.Context, weightClass domain.WeightClass, limit int) ([]domain.FighterProfile, error) {
	limit = clampLimit(limit, constants.RankingsLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fighterColumns+` FROM fighter_profiles
		WHERE ($1 = '' OR weight_class = $1)
		ORDER BY points DESC, win_percentage DESC, wins DESC, name ASC
		LIMIT $2`,
		string(weightClass), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fighters := []domain.FighterProfile{}
	for rows.Next() {
		p, err := scanFighter(rows)
		if err != nil {
			return nil, err
		}
		fighters = append(fighters, *p)
	}
	return fighters, rows.Err()
}

func getFighterByUser(ctx context.Context, q DBTX, userID string) (*domain.FighterProfile, error) {
	row := q.QueryRowContext(ctx, `SELECT `+fighterColumns+` FROM fighter_profiles WHERE user_id = $1`, userID)
	p, err := scanFighter(row)
	if err != nil {
		return nil, fmt.Errorf("get fighter by user: %w", classify(err))
	}
	return p, nil
}

func getFighter(ctx context.Context, q DBTX, id string) (*domain.FighterProfile, error) {
	row := q.QueryRowContext(ctx, `SELECT `+fighterColumns+` FROM fighter_profiles WHERE id = $1`, id)
	p, err := scanFighter(row)
	if err != nil {
		return nil, fmt.Errorf("get fighter: %w", classify(err))
	}
	return p, nil
}

// writeRecord stores next only if the counters still equal prior. Every
// fight bumps exactly one of wins, losses or draws, so the triple versions
// the row.
func writeRecord(ctx context.Context, q DBTX, id string, prior, next domain.Record, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE fighter_profiles
		SET wins = $1, losses = $2, draws = $3, points = $4, knockouts = $5,
			win_percentage = $6, ko_percentage = $7, current_streak = $8, updated_at = $9
		WHERE id = $10 AND wins = $11 AND losses = $12 AND draws = $13`,
		next.Wins, next.Losses, next.Draws, next.Points, next.Knockouts,
		next.WinPercentage, next.KOPercentage, next.CurrentStreak, at.UTC(),
		id, prior.Wins, prior.Losses, prior.Draws,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrStale)
}

func scanFighter(row rowScanner) (*domain.FighterProfile, error) {
	var p domain.FighterProfile
	var stance, tier, weightClass string
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Nickname, &p.Birthday, &p.HeightCM, &p.WeightKG, &p.ReachCM,
		&stance, &p.Country, &p.Bio, &tier, &weightClass,
		&p.Wins, &p.Losses, &p.Draws, &p.Points, &p.Knockouts,
		&p.WinPercentage, &p.KOPercentage, &p.CurrentStreak, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Stance = domain.Stance(stance)
	p.Tier = domain.Tier(tier)
	p.WeightClass = domain.WeightClass(weightClass)
	p.Birthday = p.Birthday.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
