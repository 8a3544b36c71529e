package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MilestoneStatusLocked   = "LOCKED"
	MilestoneStatusReleased = "RELEASED"
)

// Milestone is one condition-locked escrow on the ledger. The pair
// (owner_address, offer_sequence) identifies it uniquely; the ledger
// guarantees the sequence is unique per owner account.
type Milestone struct {
	ID            uuid.UUID `json:"id"`
	EscrowTxHash  string    `json:"escrow_tx_hash"`
	OwnerAddress  string    `json:"owner_address"`
	OfferSequence uint32    `json:"offer_sequence"`
	// Fulfillment is the secret preimage unlocking the escrow. Never
	// serialized; it leaves the store only through the release path.
	Fulfillment    string     `json:"-"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ReleasedTxHash *string    `json:"released_tx_hash,omitempty"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
}

// Releasable reports whether the milestone still holds a consumable
// fulfillment. RELEASED is terminal; there is no path back to LOCKED.
func (m *Milestone) Releasable() bool {
	return m.Status == MilestoneStatusLocked
}
