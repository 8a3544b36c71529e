package repositories

import (
	"context"
	"errors"

	"github.com/freelance-escrow/backend/internal/models"
)

var (
	// ErrDuplicateMilestone means a record with the same
	// (owner_address, offer_sequence) already exists. The existing record is
	// left untouched.
	ErrDuplicateMilestone = errors.New("milestone already exists for this owner and sequence")

	// ErrNotFound covers both "never existed" and "no longer LOCKED"
	// uniformly, so callers cannot tell which case applies.
	ErrNotFound = errors.New("no locked milestone for this owner and sequence")
)

// MilestoneRepo is the source of truth for whether a fulfillment is still
// releasable. MarkReleased is the authoritative gate against double release:
// it transitions only a currently LOCKED row and reports whether the update
// applied, so concurrent releases serialize on the storage layer.
type MilestoneRepo interface {
	// Save inserts a new LOCKED record. ErrDuplicateMilestone on a
	// (owner_address, offer_sequence) collision.
	Save(ctx context.Context, m *models.Milestone) error

	// GetFulfillment returns the stored fulfillment only while the record
	// is LOCKED; ErrNotFound otherwise. Advisory: the release decision
	// belongs to MarkReleased.
	GetFulfillment(ctx context.Context, ownerAddress string, offerSequence uint32) (string, error)

	// MarkReleased atomically transitions LOCKED -> RELEASED, stamping the
	// release hash and time. Returns false when no LOCKED row matched.
	MarkReleased(ctx context.Context, ownerAddress string, offerSequence uint32, releasedTxHash string) (bool, error)

	// List returns all milestones newest-created first, without
	// fulfillments.
	List(ctx context.Context) ([]*models.Milestone, error)
}
