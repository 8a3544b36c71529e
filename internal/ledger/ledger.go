// Package ledger talks to the XRP Ledger. The rest of the backend consumes
// only the Gateway and Faucet interfaces; the JSON-RPC client is wired in
// once at process start.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrSubmissionFailed means the ledger did not accept or validate the
	// transaction. No local state changed; the operation is safe to retry.
	ErrSubmissionFailed = errors.New("ledger submission failed")

	// ErrSequenceUnavailable means an escrow settled on the ledger but the
	// response carried no sequence number under any known field. The escrow
	// cannot be tracked locally; manual follow-up is required.
	ErrSequenceUnavailable = errors.New("ledger response missing escrow sequence")
)

// Credential is an opaque signing capability for one ledger account. The
// seed never leaves this package: String and JSON marshalling both redact
// it, so it cannot leak through logs or response bodies.
type Credential struct {
	seed string
}

func NewCredential(seed string) Credential {
	return Credential{seed: seed}
}

func (c Credential) Empty() bool {
	return c.seed == ""
}

func (c Credential) String() string {
	return "[redacted]"
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"[redacted]"`), nil
}

// CreateResult identifies a settled EscrowCreate transaction.
type CreateResult struct {
	TxHash        string
	OwnerAddress  string
	OfferSequence uint32
}

// ReleaseResult identifies a settled EscrowFinish transaction.
type ReleaseResult struct {
	TxHash string
}

// Wallet is a freshly funded testnet account. Demo convenience only.
type Wallet struct {
	Address string `json:"address"`
	Seed    string `json:"seed"`
}

// Gateway submits escrow transactions and blocks until network settlement
// or failure. Implementations must not be shared mutable per-request state.
type Gateway interface {
	// SubmitEscrowCreate locks amountDrops for destination under the given
	// condition. The fulfillment is never sent here.
	SubmitEscrowCreate(ctx context.Context, cred Credential, destination, amountDrops, conditionB64 string) (*CreateResult, error)

	// SubmitEscrowRelease finishes the escrow identified by
	// (ownerAddress, offerSequence) by revealing the fulfillment. The ledger
	// rejects a mismatched preimage or an already-released escrow.
	SubmitEscrowRelease(ctx context.Context, cred Credential, ownerAddress string, offerSequence uint32, fulfillmentB64 string) (*ReleaseResult, error)
}

// Faucet creates and funds throwaway testnet wallets.
type Faucet interface {
	FundWallet(ctx context.Context) (*Wallet, error)
}
