package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/freelance-escrow/backend/internal/conditions"
	"github.com/freelance-escrow/backend/internal/events"
	"github.com/freelance-escrow/backend/internal/ledger"
	"github.com/freelance-escrow/backend/internal/models"
	"github.com/freelance-escrow/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput is rejected before any ledger call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReleasable means no LOCKED record exists for the given owner and
	// sequence: already released, or never created. No ledger call is made.
	ErrNotReleasable = errors.New("milestone is not releasable")
)

// EscrowService drives the milestone lifecycle: LOCKED on escrow creation,
// one irreversible transition to RELEASED on approval. The ledger gateway is
// injected once at startup; no persistence lock is ever held across a ledger
// round trip.
type EscrowService struct {
	repo      repositories.MilestoneRepo
	gateway   ledger.Gateway
	publisher events.Publisher
	log       *zap.Logger
}

func NewEscrowService(repo repositories.MilestoneRepo, gateway ledger.Gateway, publisher events.Publisher, log *zap.Logger) *EscrowService {
	return &EscrowService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		log:       log,
	}
}

// ApproveResult reports a settled release.
type ApproveResult struct {
	ReleaseTxHash string

	// DuplicateBroadcast is set when the release settled on the ledger but
	// the local conditional mark applied to no row: a concurrent approval
	// won the race. Harmless on the ledger side (the second finish cannot
	// double-spend) but worth reconciling.
	DuplicateBroadcast bool
}

// CreateMilestone locks amountDrops for destination under a fresh condition
// and records the milestone once the escrow has settled. Nothing is
// persisted on submission failure.
func (s *EscrowService) CreateMilestone(ctx context.Context, cred ledger.Credential, destination, amountDrops string) (*models.Milestone, error) {
	if cred.Empty() {
		return nil, fmt.Errorf("%w: employer seed is required", ErrInvalidInput)
	}
	if !validAddress(destination) {
		return nil, fmt.Errorf("%w: freelancer address %q is not a ledger address", ErrInvalidInput, destination)
	}
	if !validDrops(amountDrops) {
		return nil, fmt.Errorf("%w: amount %q must be a positive integer number of drops", ErrInvalidInput, amountDrops)
	}

	pair, err := conditions.GeneratePair()
	if err != nil {
		return nil, err
	}

	// Only the condition goes on-ledger; the fulfillment stays local until
	// approval.
	res, err := s.gateway.SubmitEscrowCreate(ctx, cred, destination, amountDrops, pair.ConditionB64)
	if err != nil {
		return nil, err
	}

	m := &models.Milestone{
		ID:            uuid.New(),
		EscrowTxHash:  res.TxHash,
		OwnerAddress:  res.OwnerAddress,
		OfferSequence: res.OfferSequence,
		Fulfillment:   pair.FulfillmentB64,
		Status:        models.MilestoneStatusLocked,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, m); err != nil {
		// The escrow now exists on-ledger with no locally tracked
		// fulfillment. Not retryable: resubmitting would lock more funds.
		s.log.Error("escrow settled on ledger but local save failed; manual reconciliation required",
			zap.String("escrow_tx_hash", res.TxHash),
			zap.String("owner_address", res.OwnerAddress),
			zap.Uint32("offer_sequence", res.OfferSequence),
			zap.Error(err))
		return nil, fmt.Errorf("persist milestone for escrow %s: %w", res.TxHash, err)
	}

	s.publish(ctx, events.EventMilestoneCreated, m.OwnerAddress, m.OfferSequence, map[string]any{
		"escrow_tx_hash": m.EscrowTxHash,
	})

	s.log.Info("milestone locked",
		zap.String("escrow_tx_hash", m.EscrowTxHash),
		zap.String("owner_address", m.OwnerAddress),
		zap.Uint32("offer_sequence", m.OfferSequence))
	return m, nil
}

// ApproveMilestone releases the escrow identified by (ownerAddress,
// offerSequence) using the stored fulfillment. The conditional MarkReleased
// is the authoritative double-release gate; the preceding fetch only avoids
// pointless ledger calls.
func (s *EscrowService) ApproveMilestone(ctx context.Context, cred ledger.Credential, ownerAddress string, offerSequence uint32) (*ApproveResult, error) {
	if cred.Empty() {
		return nil, fmt.Errorf("%w: employer seed is required", ErrInvalidInput)
	}
	if !validAddress(ownerAddress) {
		return nil, fmt.Errorf("%w: owner address %q is not a ledger address", ErrInvalidInput, ownerAddress)
	}

	fulfillment, err := s.repo.GetFulfillment(ctx, ownerAddress, offerSequence)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: no locked milestone for %s sequence %d", ErrNotReleasable, ownerAddress, offerSequence)
	}
	if err != nil {
		return nil, err
	}

	// Submission failure leaves the milestone LOCKED with its fulfillment
	// unconsumed; the caller may retry.
	res, err := s.gateway.SubmitEscrowRelease(ctx, cred, ownerAddress, offerSequence, fulfillment)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.MarkReleased(ctx, ownerAddress, offerSequence, res.TxHash)
	if err != nil {
		s.log.Error("release settled on ledger but local mark failed; manual reconciliation required",
			zap.String("release_tx_hash", res.TxHash),
			zap.String("owner_address", ownerAddress),
			zap.Uint32("offer_sequence", offerSequence),
			zap.Error(err))
		return nil, fmt.Errorf("mark milestone released after tx %s: %w", res.TxHash, err)
	}
	if !applied {
		// A concurrent approval marked it first. Our broadcast already went
		// out, so surface it for reconciliation instead of failing the
		// request.
		s.log.Warn("milestone released on ledger but local mark did not apply; duplicate broadcast",
			zap.String("release_tx_hash", res.TxHash),
			zap.String("owner_address", ownerAddress),
			zap.Uint32("offer_sequence", offerSequence))
		return &ApproveResult{ReleaseTxHash: res.TxHash, DuplicateBroadcast: true}, nil
	}

	s.publish(ctx, events.EventMilestoneReleased, ownerAddress, offerSequence, map[string]any{
		"release_tx_hash": res.TxHash,
	})

	s.log.Info("milestone released",
		zap.String("release_tx_hash", res.TxHash),
		zap.String("owner_address", ownerAddress),
		zap.Uint32("offer_sequence", offerSequence))
	return &ApproveResult{ReleaseTxHash: res.TxHash}, nil
}

// ListMilestones returns all milestones newest first, fulfillments excluded.
func (s *EscrowService) ListMilestones(ctx context.Context) ([]*models.Milestone, error) {
	return s.repo.List(ctx)
}

func (s *EscrowService) publish(ctx context.Context, eventType, ownerAddress string, offerSequence uint32, extra map[string]any) {
	payload := map[string]any{
		"owner_address":  ownerAddress,
		"offer_sequence": offerSequence,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.Publish(ctx, events.StreamMilestones, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("failed to publish milestone event", zap.String("type", eventType), zap.Error(err))
	}
}

// validAddress accepts classic ledger addresses. The ledger itself is the
// final validator; this only rejects obvious garbage before a network call.
func validAddress(addr string) bool {
	return strings.HasPrefix(addr, "r") && len(addr) > 1 && !strings.ContainsAny(addr, " \t\n")
}

func validDrops(amount string) bool {
	v, err := strconv.ParseUint(amount, 10, 64)
	return err == nil && v > 0
}
