package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/freelance-escrow/backend/internal/models"
	sqlite3 "github.com/mattn/go-sqlite3"
)

var _ MilestoneRepo = (*SQLiteMilestoneRepo)(nil)

// SQLiteMilestoneRepo is the default file-backed store.
type SQLiteMilestoneRepo struct {
	db *sql.DB
}

func NewSQLiteMilestoneRepo(db *sql.DB) *SQLiteMilestoneRepo {
	return &SQLiteMilestoneRepo{db: db}
}

func (r *SQLiteMilestoneRepo) Save(ctx context.Context, m *models.Milestone) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO milestones (id, escrow_tx_hash, owner_address, offer_sequence, fulfillment_b64, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID.String(), m.EscrowTxHash, m.OwnerAddress, m.OfferSequence, m.Fulfillment, m.Status, m.CreatedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateMilestone
		}
		return err
	}
	return nil
}

func (r *SQLiteMilestoneRepo) GetFulfillment(ctx context.Context, ownerAddress string, offerSequence uint32) (string, error) {
	var fulfillment string
	err := r.db.QueryRowContext(ctx, `
		SELECT fulfillment_b64 FROM milestones
		WHERE owner_address = ? AND offer_sequence = ? AND status = ?
	`, ownerAddress, offerSequence, models.MilestoneStatusLocked).Scan(&fulfillment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return fulfillment, nil
}

func (r *SQLiteMilestoneRepo) MarkReleased(ctx context.Context, ownerAddress string, offerSequence uint32, releasedTxHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones
		SET status = ?, released_tx_hash = ?, released_at = ?
		WHERE owner_address = ? AND offer_sequence = ? AND status = ?
	`, models.MilestoneStatusReleased, releasedTxHash, time.Now().UTC(),
		ownerAddress, offerSequence, models.MilestoneStatusLocked)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteMilestoneRepo) List(ctx context.Context) ([]*models.Milestone, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		m, err := scanMilestoneRow(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func scanMilestoneRow(rows *sql.Rows) (*models.Milestone, error) {
	var (
		m      models.Milestone
		rawID  string
		txHash sql.NullString
		relAt  sql.NullTime
	)
	if err := rows.Scan(&rawID, &m.EscrowTxHash, &m.OwnerAddress, &m.OfferSequence,
		&m.Status, &m.CreatedAt, &txHash, &relAt); err != nil {
		return nil, err
	}
	if err := m.ID.UnmarshalText([]byte(rawID)); err != nil {
		return nil, err
	}
	if txHash.Valid {
		m.ReleasedTxHash = &txHash.String
	}
	if relAt.Valid {
		t := relAt.Time
		m.ReleasedAt = &t
	}
	return &m, nil
}
