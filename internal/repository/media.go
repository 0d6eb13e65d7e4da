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

const mediaColumns = `id, fighter_id, title, description, url, mime_type, size_bytes, status, created_at`

type MediaRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMediaRepository(sqlDB *sql.DB, logger zerolog.Logger) *MediaRepository {
	return &MediaRepository{db: sqlDB, logger: logger}
}

// NewID reserves an id before the object is uploaded so the storage path and
// the row agree.
func (r *MediaRepository) NewID() (string, error) {
	return newID()
}

// Create inserts asset using its pre-assigned id, generating one if empty.
func (r *MediaRepository) Create(ctx context.Context, asset *domain.MediaAsset) error {
	if asset.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		asset.ID = id
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_assets (`+mediaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		asset.ID, asset.FighterID, asset.Title, asset.Description, asset.URL, asset.MimeType,
		asset.SizeBytes, string(asset.Status), asset.CreatedAt.UTC(),
	)
	return classify(err)
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaAsset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_assets WHERE id = $1`, id)
	m, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("get media asset: %w", classify(err))
	}
	return m, nil
}

// Moderate moves a pending asset to status. Assets already moderated are
// ErrStale.
func (r *MediaRepository) Moderate(ctx context.Context, id string, status domain.MediaStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE media_assets SET status = $1 WHERE id = $2 AND status = $3`,
		string(status), id, string(domain.MediaPending),
	)
	if err != nil {
		return err
	}
	if err := requireAffected(res, ErrStale); !errors.Is(err, ErrStale) {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStale
}

func (r *MediaRepository) ListByFighter(ctx context.Context, fighterID string, limit int) ([]domain.MediaAsset, error) {
	limit = clampLimit(limit, constants.DefaultListLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mediaColumns+` FROM media_assets
		WHERE fighter_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		fighterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []domain.MediaAsset{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *m)
	}
	return assets, rows.Err()
}

func scanMedia(row rowScanner) (*domain.MediaAsset, error) {
	var m domain.MediaAsset
	var status string
	err := row.Scan(&m.ID, &m.FighterID, &m.Title, &m.Description, &m.URL, &m.MimeType,
		&m.SizeBytes, &status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = domain.MediaStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
