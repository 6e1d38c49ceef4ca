package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/logger"
)

type CheckoutRequest struct {
	PlaceOrderInput
	CouponCode string `json:"couponCode"`
}

// CheckoutResult carries the placed order plus the outcome of the follow-up steps.
// A follow-up failure never undoes the order.
type CheckoutResult struct {
	Order        *domain.Order `json:"order"`
	CouponError  string        `json:"couponError,omitempty"`
	LoyaltyError string        `json:"loyaltyError,omitempty"`
	PointsEarned int           `json:"pointsEarned"`
}

type CheckoutUsecase struct {
	orders    *OrderUsecase
	coupons   *CouponUsecase
	loyalty   *LoyaltyUsecase
	orderRepo domain.OrderRepository
	events    domain.OrderEventPublisher
	now       func() time.Time
}

// NewCheckoutUsecase composes placement with the best-effort steps. events may be nil.
func NewCheckoutUsecase(orders *OrderUsecase, coupons *CouponUsecase, loyalty *LoyaltyUsecase, orderRepo domain.OrderRepository, events domain.OrderEventPublisher) *CheckoutUsecase {
	return &CheckoutUsecase{
		orders:    orders,
		coupons:   coupons,
		loyalty:   loyalty,
		orderRepo: orderRepo,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CheckoutUsecase) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	// 1. Place the order; nothing else runs unless it exists
	order, err := uc.orders.PlaceOrder(ctx, req.PlaceOrderInput)
	if err != nil {
		return nil, err
	}
	result := &CheckoutResult{Order: order}
	log := logger.WithContext(ctx)

	// 2. Coupon
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		if err := uc.applyCoupon(ctx, order, code); err != nil {
			result.CouponError = err.Error()
			log.Warn().Err(err).Str("order_id", order.ID).Str("coupon", code).Msg("Coupon not applied")
		}
	}

	// 3. Loyalty
	if order.UserID != nil && uc.loyalty != nil {
		points := uc.loyalty.PointsForOrder(order.Total)
		if points > 0 {
			orderID := order.ID
			if _, err := uc.loyalty.AddPoints(ctx, *order.UserID, points, fmt.Sprintf("Order %s", order.ID), &orderID); err != nil {
				result.LoyaltyError = err.Error()
				log.Warn().Err(err).Str("order_id", order.ID).Msg("Loyalty accrual failed")
			} else {
				result.PointsEarned = points
			}
		}
	}

	// 4. Notify
	if uc.events != nil {
		if err := uc.events.PublishOrderPlaced(ctx, order); err != nil {
			log.Warn().Err(err).Str("order_id", order.ID).Msg("Order event not published")
		}
	}

	return result, nil
}

func (uc *CheckoutUsecase) applyCoupon(ctx context.Context, order *domain.Order, code string) error {
	coupon, err := uc.coupons.Validate(ctx, code, order.Total, uc.now())
	if err != nil {
		return err
	}
	discount := coupon.DiscountFor(order.Total)

	// The use is only counted once the order carries the discount.
	applied := false
	err = uc.orders.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.ApplyDiscount(txCtx, order.ID, coupon.Code, discount); err != nil {
			return fmt.Errorf("failed to apply discount: %w", err)
		}
		applied = true
		return uc.coupons.RecordUse(txCtx, coupon)
	})
	if err != nil {
		if applied {
			uc.clearDiscount(ctx, order.ID)
		}
		return err
	}
	order.CouponCode = coupon.Code
	order.Discount = discount
	return nil
}

// clearDiscount undoes a discount whose coupon use could not be recorded. A rolled
// back transaction already did this; stores without rollback need the write.
func (uc *CheckoutUsecase) clearDiscount(ctx context.Context, orderID string) {
	if err := uc.orderRepo.ApplyDiscount(context.WithoutCancel(ctx), orderID, "", decimal.Zero); err != nil {
		logger.WithContext(ctx).Error().Err(err).
			Str("order_id", orderID).
			Msg("Failed to clear discount after coupon use was refused")
	}
}
