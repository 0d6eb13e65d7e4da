package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
)

const disputeColumns = `id, fight_record_id, filed_by, reason, description, status, resolution,
	admin_notes, resolved_by, resolved_at, created_at`

type DisputeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDisputeRepository(sqlDB *sql.DB, logger zerolog.Logger) *DisputeRepository {
	return &DisputeRepository{db: sqlDB, logger: logger}
}

// Create files a pending dispute. A fight record with an open dispute is
// ErrDuplicate.
func (r *DisputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, d.FightRecordID, d.FiledBy, string(d.Reason), d.Description, string(d.Status),
		d.Resolution, d.AdminNotes, d.ResolvedBy, nullTime(d.ResolvedAt), d.CreatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}

	d.ID = id
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	d, err := scanDispute(row)
	if err != nil {
		return nil, fmt.Errorf("get dispute: %w", classify(err))
	}
	return d, nil
}

// Transition stores d's new status and resolution fields only if the row is
// still in prior. A concurrent reviewer that got there first yields ErrStale.
func (r *DisputeRepository) Transition(ctx context.Context, d *domain.Dispute, prior domain.DisputeStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = $1, resolution = $2, admin_notes = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $6 AND status = $7`,
		string(d.Status), d.Resolution, d.AdminNotes, d.ResolvedBy, nullTime(d.ResolvedAt),
		d.ID, string(prior),
	)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrStale)
}

// List returns disputes oldest first so the review queue is FIFO. An empty
// status lists all.
func (r *DisputeRepository) List(ctx context.Context, status domain.DisputeStatus, limit int) ([]domain.Dispute, error) {
	limit = clampLimit(limit, constants.DefaultListLimit, constants.MaxRankingsLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC
		LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	disputes := []domain.Dispute{}
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func scanDispute(row rowScanner) (*domain.Dispute, error) {
	var d domain.Dispute
	var reason, status string
	var resolvedAt sql.NullTime
	err := row.Scan(&d.ID, &d.FightRecordID, &d.FiledBy, &reason, &d.Description, &status,
		&d.Resolution, &d.AdminNotes, &d.ResolvedBy, &resolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Reason = domain.DisputeReason(reason)
	d.Status = domain.DisputeStatus(status)
	d.ResolvedAt = timePtr(resolvedAt)
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
