package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"motoparts-backend/internal/domain"
)

type compatibilityRepository struct {
	s *Store
}

func NewCompatibilityRepository(s *Store) domain.CompatibilityRepository {
	return &compatibilityRepository{s: s}
}

func cloneModel(m domain.MotorcycleModel) domain.MotorcycleModel {
	m.Years = cloneInts(m.Years)
	return m
}

func cloneRule(r domain.CompatibilityRule) domain.CompatibilityRule {
	r.ProductIDs = cloneStrings(r.ProductIDs)
	r.MotorcycleIDs = cloneStrings(r.MotorcycleIDs)
	return r
}

func (r *compatibilityRepository) CreateMotorcycleModel(_ context.Context, m *domain.MotorcycleModel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	for _, existing := range r.s.motorcycles {
		if sameModel(existing, *m) {
			return domain.ErrConflict
		}
	}
	now := r.s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	r.s.motorcycles[m.ID] = cloneModel(*m)
	return nil
}

func (r *compatibilityRepository) UpdateMotorcycleModel(_ context.Context, m *domain.MotorcycleModel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.motorcycles[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, existing := range r.s.motorcycles {
		if id != m.ID && sameModel(existing, *m) {
			return domain.ErrConflict
		}
	}
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = r.s.now()
	r.s.motorcycles[m.ID] = cloneModel(*m)
	return nil
}

func (r *compatibilityRepository) DeleteMotorcycleModel(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.motorcycles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.motorcycles, id)
	return nil
}

func (r *compatibilityRepository) GetMotorcycleModel(_ context.Context, id string) (*domain.MotorcycleModel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.motorcycles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneModel(m)
	return &out, nil
}

func (r *compatibilityRepository) GetMotorcycleModels(_ context.Context, ids []string) ([]domain.MotorcycleModel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.MotorcycleModel, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.s.motorcycles[id]; ok {
			out = append(out, cloneModel(m))
		}
	}
	return out, nil
}

func (r *compatibilityRepository) ListMotorcycleModels(_ context.Context) ([]domain.MotorcycleModel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.MotorcycleModel, 0, len(r.s.motorcycles))
	for _, m := range r.s.motorcycles {
		out = append(out, cloneModel(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func (r *compatibilityRepository) CreateRule(_ context.Context, rule *domain.CompatibilityRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if _, exists := r.s.rules[rule.ID]; exists {
		return domain.ErrConflict
	}
	now := r.s.now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	r.s.rules[rule.ID] = cloneRule(*rule)
	return nil
}

func (r *compatibilityRepository) UpdateRule(_ context.Context, rule *domain.CompatibilityRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.rules[rule.ID]
	if !ok {
		return domain.ErrNotFound
	}
	rule.CreatedAt = current.CreatedAt
	rule.UpdatedAt = r.s.now()
	r.s.rules[rule.ID] = cloneRule(*rule)
	return nil
}

func (r *compatibilityRepository) DeleteRule(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.rules, id)
	return nil
}

func (r *compatibilityRepository) GetRule(_ context.Context, id string) (*domain.CompatibilityRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rule, ok := r.s.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRule(rule)
	return &out, nil
}

func (r *compatibilityRepository) ListRules(_ context.Context) ([]domain.CompatibilityRule, error) {
	return r.listRules(func(domain.CompatibilityRule) bool { return true }), nil
}

func (r *compatibilityRepository) ListUniversalRules(_ context.Context) ([]domain.CompatibilityRule, error) {
	return r.listRules(func(rule domain.CompatibilityRule) bool { return rule.IsUniversal }), nil
}

func (r *compatibilityRepository) ListRulesByMotorcycle(_ context.Context, motorcycleID string) ([]domain.CompatibilityRule, error) {
	return r.listRules(func(rule domain.CompatibilityRule) bool {
		for _, id := range rule.MotorcycleIDs {
			if id == motorcycleID {
				return true
			}
		}
		return false
	}), nil
}

func (r *compatibilityRepository) listRules(keep func(domain.CompatibilityRule) bool) []domain.CompatibilityRule {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []domain.CompatibilityRule{}
	for _, rule := range r.s.rules {
		if keep(rule) {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sameModel(a, b domain.MotorcycleModel) bool {
	return (domain.CompatibilityEntry{Brand: a.Brand, Model: a.Model}).Key() ==
		(domain.CompatibilityEntry{Brand: b.Brand, Model: b.Model}).Key()
}
