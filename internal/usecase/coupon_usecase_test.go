package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoparts-backend/internal/domain"
)

func couponReason(t *testing.T, err error) string {
	t.Helper()
	var couponErr *domain.CouponError
	require.True(t, errors.As(err, &couponErr), "expected a coupon error, got %v", err)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)
	return couponErr.Reason
}

func TestCouponValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	_, err := env.coupons.CreateCoupon(ctx, CouponRequest{
		Code:        " summer10 ",
		Type:        "percentage",
		Value:       decimal.NewFromInt(10),
		MinPurchase: decimalPtr("20"),
		MaxUses:     intPtr(1),
		ValidFrom:   "2026-06-01",
		ValidTo:     "2026-08-31T23:59:59Z",
		IsActive:    true,
	})
	require.NoError(t, err)

	coupon, err := env.coupons.Validate(ctx, "Summer10", decimal.NewFromInt(25), now)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", coupon.Code)
	assert.True(t, coupon.DiscountFor(decimal.NewFromInt(25)).Equal(decimal.RequireFromString("2.5")))

	_, err = env.coupons.Validate(ctx, "SUMMER10", decimal.NewFromInt(10), now)
	assert.Equal(t, domain.CouponReasonMinPurchase, couponReason(t, err))

	_, err = env.coupons.Validate(ctx, "SUMMER10", decimal.NewFromInt(25), time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, domain.CouponReasonNotStarted, couponReason(t, err))

	_, err = env.coupons.Validate(ctx, "SUMMER10", decimal.NewFromInt(25), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, domain.CouponReasonExpired, couponReason(t, err))

	_, err = env.coupons.Validate(ctx, "WINTER", decimal.NewFromInt(25), now)
	assert.Equal(t, domain.CouponReasonNotFound, couponReason(t, err))

	_, err = env.coupons.Validate(ctx, "no spaces!", decimal.NewFromInt(25), now)
	assert.Equal(t, domain.CouponReasonMalformed, couponReason(t, err))

	// Validation alone never spends a use.
	stored, err := env.coupons.GetCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UsedCount)

	require.NoError(t, env.coupons.RecordUse(ctx, coupon))
	_, err = env.coupons.Validate(ctx, "SUMMER10", decimal.NewFromInt(25), now)
	assert.Equal(t, domain.CouponReasonExhausted, couponReason(t, err))

	err = env.coupons.RecordUse(ctx, coupon)
	assert.Equal(t, domain.CouponReasonExhausted, couponReason(t, err))
}

func TestCouponAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invalid := []CouponRequest{
		{Type: "fixed", Value: decimal.NewFromInt(5)},
		{Code: "X", Type: "bogo", Value: decimal.NewFromInt(5)},
		{Code: "X", Type: "fixed", Value: decimal.Zero},
		{Code: "X", Type: "percentage", Value: decimal.NewFromInt(101)},
		{Code: "X", Type: "fixed", Value: decimal.NewFromInt(5), MaxUses: intPtr(0)},
		{Code: "X", Type: "fixed", Value: decimal.NewFromInt(5), ValidFrom: "yesterday"},
		{Code: "X", Type: "fixed", Value: decimal.NewFromInt(5), ValidFrom: "2026-02-01", ValidTo: "2026-01-01"},
	}
	for _, req := range invalid {
		_, err := env.coupons.CreateCoupon(ctx, req)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", req)
	}

	created, err := env.coupons.CreateCoupon(ctx, CouponRequest{Code: "flat50", Type: "fixed", Value: decimal.NewFromInt(50), IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "FLAT50", created.Code)

	_, err = env.coupons.CreateCoupon(ctx, CouponRequest{Code: "Flat50", Type: "fixed", Value: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, env.coupons.RecordUse(ctx, created))
	updated, err := env.coupons.UpdateCoupon(ctx, created.ID, CouponRequest{Code: "FLAT60", Type: "fixed", Value: decimal.NewFromInt(60), IsActive: false})
	require.NoError(t, err)
	assert.Equal(t, "FLAT60", updated.Code)
	assert.Equal(t, 1, updated.UsedCount)
	assert.False(t, updated.IsActive)

	list, total, err := env.coupons.ListCoupons(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), total)

	require.NoError(t, env.coupons.DeleteCoupon(ctx, created.ID))
	_, err = env.coupons.GetCoupon(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.coupons.UpdateCoupon(ctx, created.ID, CouponRequest{Code: "A", Type: "fixed", Value: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
