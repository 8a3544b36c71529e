package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freelance-escrow/backend/internal/models"
)

var _ MilestoneRepo = (*MemoryMilestoneRepo)(nil)

// MemoryMilestoneRepo is an in-memory MilestoneRepo for tests and demos.
// The same conditional-transition contract as the durable stores, guarded
// by a mutex instead of a row update.
type MemoryMilestoneRepo struct {
	mu         sync.RWMutex
	milestones map[string]*models.Milestone
}

func NewMemoryMilestoneRepo() *MemoryMilestoneRepo {
	return &MemoryMilestoneRepo{milestones: make(map[string]*models.Milestone)}
}

func milestoneKey(ownerAddress string, offerSequence uint32) string {
	return fmt.Sprintf("%s:%d", ownerAddress, offerSequence)
}

func (r *MemoryMilestoneRepo) Save(_ context.Context, m *models.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := milestoneKey(m.OwnerAddress, m.OfferSequence)
	if _, ok := r.milestones[key]; ok {
		return ErrDuplicateMilestone
	}
	cp := *m
	r.milestones[key] = &cp
	return nil
}

func (r *MemoryMilestoneRepo) GetFulfillment(_ context.Context, ownerAddress string, offerSequence uint32) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.milestones[milestoneKey(ownerAddress, offerSequence)]
	if !ok || !m.Releasable() {
		return "", ErrNotFound
	}
	return m.Fulfillment, nil
}

func (r *MemoryMilestoneRepo) MarkReleased(_ context.Context, ownerAddress string, offerSequence uint32, releasedTxHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.milestones[milestoneKey(ownerAddress, offerSequence)]
	if !ok || !m.Releasable() {
		return false, nil
	}
	now := time.Now().UTC()
	m.Status = models.MilestoneStatusReleased
	m.ReleasedTxHash = &releasedTxHash
	m.ReleasedAt = &now
	return true, nil
}

func (r *MemoryMilestoneRepo) List(_ context.Context) ([]*models.Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Milestone, 0, len(r.milestones))
	for _, m := range r.milestones {
		cp := *m
		cp.Fulfillment = ""
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
