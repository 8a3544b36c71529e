package dto

type CreateMilestoneRequest struct {
	EmployerSeed      string `json:"employer_seed"`
	FreelancerAddress string `json:"freelancer_address"`
	// AmountDrops is a decimal string, e.g. "1000000" = 1 XRP.
	AmountDrops string `json:"amount_drops"`
}

type ApproveMilestoneRequest struct {
	EmployerSeed  string `json:"employer_seed"`
	OwnerAddress  string `json:"owner_address"`
	OfferSequence uint32 `json:"offer_sequence"`
}
