package memory

import (
	"context"

	"motoparts-backend/internal/domain"
)

type loyaltyRepository struct {
	s *Store
}

func NewLoyaltyRepository(s *Store) domain.LoyaltyRepository {
	return &loyaltyRepository{s: s}
}

func cloneProgram(p domain.LoyaltyProgram) domain.LoyaltyProgram {
	p.History = append([]domain.PointsEntry{}, p.History...)
	return p
}

func (r *loyaltyRepository) GetProgram(_ context.Context, userID string) (*domain.LoyaltyProgram, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.loyalty[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneProgram(p)
	return &out, nil
}

func (r *loyaltyRepository) AdjustPoints(_ context.Context, userID string, delta int, tiers domain.TierThresholds, entry domain.PointsEntry) (*domain.LoyaltyProgram, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.loyalty[userID]
	if !ok {
		p = domain.LoyaltyProgram{UserID: userID, Tier: tiers.TierFor(0)}
	}
	if p.Points+delta < 0 {
		return nil, domain.ErrInsufficientPoints
	}
	now := r.s.now()
	p.Points += delta
	p.Tier = tiers.TierFor(p.Points)
	p.UpdatedAt = now

	r.s.nextEntryID++
	entry.ID = r.s.nextEntryID
	entry.CreatedAt = now
	p.History = append(cloneProgram(p).History, entry)
	r.s.loyalty[userID] = p

	out := cloneProgram(p)
	return &out, nil
}
