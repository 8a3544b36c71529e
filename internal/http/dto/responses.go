package dto

import "github.com/freelance-escrow/backend/internal/models"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type MilestoneResponse struct {
	Success   bool `json:"success"`
	Milestone any  `json:"milestone"`
}

// CreatedMilestone mirrors what the frontend needs to later approve the
// milestone. The fulfillment never appears here.
type CreatedMilestone struct {
	Status        string `json:"status"`
	EscrowTxHash  string `json:"escrow_tx_hash"`
	OwnerAddress  string `json:"owner_address"`
	OfferSequence uint32 `json:"offer_sequence"`
}

type ReleasedMilestone struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
}

type MilestoneListResponse struct {
	Milestones []*models.Milestone `json:"milestones"`
}

type WalletResponse struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
}
