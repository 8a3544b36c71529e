package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/freelance-escrow/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ MilestoneRepo = (*PostgresMilestoneRepo)(nil)

// PostgresMilestoneRepo backs the store with Postgres, for deployments
// where the bundled SQLite file is not enough.
type PostgresMilestoneRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresMilestoneRepo(pool *pgxpool.Pool) *PostgresMilestoneRepo {
	return &PostgresMilestoneRepo{pool: pool}
}

func (r *PostgresMilestoneRepo) Save(ctx context.Context, m *models.Milestone) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO milestones (id, escrow_tx_hash, owner_address, offer_sequence, fulfillment_b64, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.EscrowTxHash, m.OwnerAddress, m.OfferSequence, m.Fulfillment, m.Status, m.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMilestone
		}
		return err
	}
	return nil
}

func (r *PostgresMilestoneRepo) GetFulfillment(ctx context.Context, ownerAddress string, offerSequence uint32) (string, error) {
	var fulfillment string
	err := r.pool.QueryRow(ctx, `
		SELECT fulfillment_b64 FROM milestones
		WHERE owner_address = $1 AND offer_sequence = $2 AND status = $3
	`, ownerAddress, offerSequence, models.MilestoneStatusLocked).Scan(&fulfillment)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return fulfillment, nil
}

func (r *PostgresMilestoneRepo) MarkReleased(ctx context.Context, ownerAddress string, offerSequence uint32, releasedTxHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE milestones
		SET status = $1, released_tx_hash = $2, released_at = $3
		WHERE owner_address = $4 AND offer_sequence = $5 AND status = $6
	`, models.MilestoneStatusReleased, releasedTxHash, time.Now().UTC(),
		ownerAddress, offerSequence, models.MilestoneStatusLocked)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresMilestoneRepo) List(ctx context.Context) ([]*models.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, escrow_tx_hash, owner_address, offer_sequence, status, created_at, released_tx_hash, released_at
		FROM milestones
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*models.Milestone
	for rows.Next() {
		var m models.Milestone
		if err := rows.Scan(&m.ID, &m.EscrowTxHash, &m.OwnerAddress, &m.OfferSequence,
			&m.Status, &m.CreatedAt, &m.ReleasedTxHash, &m.ReleasedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, &m)
	}
	return milestones, rows.Err()
}
