package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
)

var maxPercentage = decimal.NewFromInt(100)

// CouponUsecase validates coupons at checkout and manages them for admins.
type CouponUsecase struct {
	couponRepo domain.CouponRepository
}

func NewCouponUsecase(couponRepo domain.CouponRepository) *CouponUsecase {
	return &CouponUsecase{
		couponRepo: couponRepo,
	}
}

// Validate looks the code up case-insensitively and checks it against amount at now.
// It never changes the coupon; RecordUse does that once an order exists.
func (uc *CouponUsecase) Validate(ctx context.Context, code string, amount decimal.Decimal, now time.Time) (*domain.Coupon, error) {
	normalized := domain.NormalizeCouponCode(code)
	if !domain.ValidCouponCode(normalized) {
		return nil, &domain.CouponError{Code: normalized, Reason: domain.CouponReasonMalformed}
	}

	coupon, err := uc.couponRepo.GetCouponByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.CouponError{Code: normalized, Reason: domain.CouponReasonNotFound}
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	if err := coupon.Check(amount, now); err != nil {
		return nil, err
	}
	return coupon, nil
}

// RecordUse consumes one use of the coupon. A spent budget is reported as exhausted.
func (uc *CouponUsecase) RecordUse(ctx context.Context, coupon *domain.Coupon) error {
	if err := uc.couponRepo.IncrementCouponUsage(ctx, coupon.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return &domain.CouponError{Code: coupon.Code, Reason: domain.CouponReasonExhausted}
		}
		return fmt.Errorf("failed to record coupon use: %w", err)
	}
	return nil
}

// CouponRequest is the admin input for creating or replacing a coupon.
type CouponRequest struct {
	Code        string           `json:"code"`
	Type        string           `json:"type"` // "percentage" or "fixed"
	Value       decimal.Decimal  `json:"value"`
	MinPurchase *decimal.Decimal `json:"minPurchase"`
	MaxUses     *int             `json:"maxUses"`
	ValidFrom   string           `json:"validFrom"` // ISO8601 format
	ValidTo     string           `json:"validTo"`
	IsActive    bool             `json:"isActive"`
}

func (req CouponRequest) toCoupon() (*domain.Coupon, error) {
	code := domain.NormalizeCouponCode(req.Code)
	if code == "" {
		return nil, domain.NewValidationError("code", "coupon code is required")
	}
	if !domain.ValidCouponCode(code) {
		return nil, domain.NewValidationError("code", "only letters, digits, '-' and '_' are allowed")
	}

	typ := domain.CouponType(strings.ToLower(strings.TrimSpace(req.Type)))
	if typ != domain.CouponTypePercentage && typ != domain.CouponTypeFixed {
		return nil, domain.NewValidationError("type", "coupon type must be 'percentage' or 'fixed'")
	}
	if !req.Value.IsPositive() {
		return nil, domain.NewValidationError("value", "coupon value must be greater than 0")
	}
	if typ == domain.CouponTypePercentage && req.Value.GreaterThan(maxPercentage) {
		return nil, domain.NewValidationError("value", "percentage discount cannot exceed 100%%")
	}
	if req.MinPurchase != nil && req.MinPurchase.IsNegative() {
		return nil, domain.NewValidationError("minPurchase", "must not be negative")
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return nil, domain.NewValidationError("maxUses", "must be positive when set")
	}

	coupon := &domain.Coupon{
		Code:        code,
		Type:        typ,
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		MaxUses:     req.MaxUses,
		IsActive:    req.IsActive,
	}

	if req.ValidFrom != "" {
		t, err := parseISO8601(req.ValidFrom)
		if err != nil {
			return nil, domain.NewValidationError("validFrom", "invalid date %q", req.ValidFrom)
		}
		coupon.ValidFrom = &t
	}
	if req.ValidTo != "" {
		t, err := parseISO8601(req.ValidTo)
		if err != nil {
			return nil, domain.NewValidationError("validTo", "invalid date %q", req.ValidTo)
		}
		coupon.ValidTo = &t
	}
	if coupon.ValidFrom != nil && coupon.ValidTo != nil && coupon.ValidTo.Before(*coupon.ValidFrom) {
		return nil, domain.NewValidationError("validTo", "must not be before validFrom")
	}
	return coupon, nil
}

func (uc *CouponUsecase) CreateCoupon(ctx context.Context, req CouponRequest) (*domain.Coupon, error) {
	coupon, err := req.toCoupon()
	if err != nil {
		return nil, err
	}

	if err := uc.couponRepo.CreateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: coupon code '%s' already exists", domain.ErrConflict, coupon.Code)
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return coupon, nil
}

// ListCoupons returns paginated list of coupons.
func (uc *CouponUsecase) ListCoupons(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	coupons, err := uc.couponRepo.ListCoupons(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	total, err := uc.couponRepo.CountCoupons(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	return coupons, total, nil
}

func (uc *CouponUsecase) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	return uc.couponRepo.GetCouponByID(ctx, id)
}

// UpdateCoupon replaces the editable fields. The used count is kept.
func (uc *CouponUsecase) UpdateCoupon(ctx context.Context, id string, req CouponRequest) (*domain.Coupon, error) {
	if _, err := uc.couponRepo.GetCouponByID(ctx, id); err != nil {
		return nil, err
	}

	coupon, err := req.toCoupon()
	if err != nil {
		return nil, err
	}
	coupon.ID = id

	if err := uc.couponRepo.UpdateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: coupon code '%s' already exists", domain.ErrConflict, coupon.Code)
		}
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return uc.couponRepo.GetCouponByID(ctx, id)
}

func (uc *CouponUsecase) DeleteCoupon(ctx context.Context, id string) error {
	return uc.couponRepo.DeleteCoupon(ctx, id)
}

// parseISO8601 parses an ISO8601 date string.
func parseISO8601(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format")
}
