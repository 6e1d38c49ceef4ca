package v1

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type CouponHandler struct {
	couponUC *usecase.CouponUsecase
	now      func() time.Time
}

func NewCouponHandler(uc *usecase.CouponUsecase) *CouponHandler {
	return &CouponHandler{couponUC: uc, now: time.Now}
}

type couponQuote struct {
	Code      string          `json:"code"`
	Type      string          `json:"type"`
	Discount  decimal.Decimal `json:"discount"`
	AmountDue decimal.Decimal `json:"amountDue"`
}

// Validate previews a coupon against a cart amount. It never consumes a use.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string          `json:"code"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, r, domain.NewValidationError("amount", "must not be negative"))
		return
	}

	coupon, err := h.couponUC.Validate(r.Context(), req.Code, req.Amount, h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	discount := coupon.DiscountFor(req.Amount)
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: couponQuote{
		Code:      coupon.Code,
		Type:      string(coupon.Type),
		Discount:  discount,
		AmountDue: req.Amount.Sub(discount),
	}})
}
