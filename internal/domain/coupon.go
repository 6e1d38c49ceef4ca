package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	ID          string           `json:"id"`
	Code        string           `json:"code"`
	Type        CouponType       `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	MinPurchase *decimal.Decimal `json:"minPurchase"`
	MaxUses     *int             `json:"maxUses"`
	UsedCount   int              `json:"usedCount"`
	ValidFrom   *time.Time       `json:"validFrom"`
	ValidTo     *time.Time       `json:"validTo"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NormalizeCouponCode is the canonical stored form of a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCouponCode accepts letters, digits, dash and underscore.
func ValidCouponCode(code string) bool {
	if code == "" || len(code) > 64 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Check decides whether the coupon is usable for amount at now. It has no side effects,
// so repeated calls with the same arguments agree. The validity window is inclusive.
func (c Coupon) Check(amount decimal.Decimal, now time.Time) error {
	reject := func(reason string) error {
		return &CouponError{Code: c.Code, Reason: reason}
	}
	if !c.IsActive {
		return reject(CouponReasonInactive)
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return reject(CouponReasonNotStarted)
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return reject(CouponReasonExpired)
	}
	if c.Exhausted() {
		return reject(CouponReasonExhausted)
	}
	if c.MinPurchase != nil && amount.LessThan(*c.MinPurchase) {
		return reject(CouponReasonMinPurchase)
	}
	return nil
}

func (c Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}

// DiscountFor computes the discount on amount, never more than the amount itself.
func (c Coupon) DiscountFor(amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case CouponTypePercentage:
		d = amount.Mul(c.Value).Div(hundred).Round(2)
	case CouponTypeFixed:
		d = c.Value
	default:
		return decimal.Zero
	}
	if d.GreaterThan(amount) {
		return amount
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

type CouponRepository interface {
	CreateCoupon(ctx context.Context, coupon *Coupon) error
	GetCouponByCode(ctx context.Context, code string) (*Coupon, error)
	GetCouponByID(ctx context.Context, id string) (*Coupon, error)
	ListCoupons(ctx context.Context, limit, offset int) ([]Coupon, error)
	CountCoupons(ctx context.Context) (int64, error)
	UpdateCoupon(ctx context.Context, coupon *Coupon) error
	// IncrementCouponUsage bumps used_count only while it is below max_uses.
	// Returns ErrConflict when the budget is already spent.
	IncrementCouponUsage(ctx context.Context, id string) error
	DeleteCoupon(ctx context.Context, id string) error
}
