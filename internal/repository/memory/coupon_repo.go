package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"motoparts-backend/internal/domain"
)

type couponRepository struct {
	s *Store
}

func NewCouponRepository(s *Store) domain.CouponRepository {
	return &couponRepository{s: s}
}

func (r *couponRepository) CreateCoupon(_ context.Context, coupon *domain.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	if r.codeTaken(coupon.Code, "") {
		return domain.ErrConflict
	}
	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	now := r.s.now()
	coupon.CreatedAt, coupon.UpdatedAt = now, now
	r.s.coupons[coupon.ID] = cloneCoupon(*coupon)
	return nil
}

func (r *couponRepository) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code = domain.NormalizeCouponCode(code)
	for _, c := range r.s.coupons {
		if c.Code == code {
			out := cloneCoupon(c)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *couponRepository) GetCouponByID(_ context.Context, id string) (*domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneCoupon(c)
	return &out, nil
}

func (r *couponRepository) ListCoupons(_ context.Context, limit, offset int) ([]domain.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := make([]domain.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		all = append(all, cloneCoupon(c))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Code < all[j].Code
	})
	start, end := paginate(len(all), limit, offset)
	return all[start:end], nil
}

func (r *couponRepository) CountCoupons(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.coupons)), nil
}

func (r *couponRepository) UpdateCoupon(_ context.Context, coupon *domain.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.coupons[coupon.ID]
	if !ok {
		return domain.ErrNotFound
	}
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	if r.codeTaken(coupon.Code, coupon.ID) {
		return domain.ErrConflict
	}
	coupon.UsedCount = current.UsedCount
	coupon.CreatedAt = current.CreatedAt
	coupon.UpdatedAt = r.s.now()
	r.s.coupons[coupon.ID] = cloneCoupon(*coupon)
	return nil
}

func (r *couponRepository) IncrementCouponUsage(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Exhausted() {
		return domain.ErrConflict
	}
	c.UsedCount++
	c.UpdatedAt = r.s.now()
	r.s.coupons[id] = c
	return nil
}

func (r *couponRepository) DeleteCoupon(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *couponRepository) codeTaken(code, exceptID string) bool {
	for id, c := range r.s.coupons {
		if id != exceptID && c.Code == code {
			return true
		}
	}
	return false
}
