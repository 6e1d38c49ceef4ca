package v1

import (
	"errors"
	"net/http"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/logger"
	"motoparts-backend/pkg/utils"
)

// writeError maps usecase errors onto HTTP statuses. Unexpected errors are logged and
// reported without their detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
		couponErr     *domain.CouponError
		transitionErr *domain.TransitionError
	)

	switch {
	case errors.Is(err, domain.ErrPersistence):
		// Checked first: a rejection joined with a failed compensation is still a system failure.
		logInternal(r, err)
		utils.WriteErrorDetail(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	case errors.As(err, &validationErr):
		utils.WriteErrorDetail(w, http.StatusBadRequest, "validation_failed", validationErr.Error(),
			map[string]string{"field": validationErr.Field})
	case errors.Is(err, domain.ErrValidation):
		utils.WriteErrorDetail(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		utils.WriteErrorDetail(w, http.StatusNotFound, "not_found", "Resource not found", nil)
	case errors.As(err, &stockErr):
		utils.WriteErrorDetail(w, http.StatusConflict, "insufficient_stock", stockErr.Error(),
			map[string][]string{"productIds": stockErr.ProductIDs})
	case errors.Is(err, domain.ErrConflict):
		utils.WriteErrorDetail(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.As(err, &couponErr):
		utils.WriteErrorDetail(w, http.StatusUnprocessableEntity, "coupon_invalid", couponErr.Error(),
			map[string]string{"reason": couponErr.Reason})
	case errors.As(err, &transitionErr):
		utils.WriteErrorDetail(w, http.StatusUnprocessableEntity, "invalid_transition", transitionErr.Error(),
			map[string]string{"from": string(transitionErr.From), "to": string(transitionErr.To)})
	case errors.Is(err, domain.ErrInsufficientPoints):
		utils.WriteErrorDetail(w, http.StatusUnprocessableEntity, "insufficient_points", err.Error(), nil)
	default:
		logInternal(r, err)
		utils.WriteErrorDetail(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

func logInternal(r *http.Request, err error) {
	logger.WithContext(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")
}

func pageParams(r *http.Request) (page, limit int) {
	page = utils.ParseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit = utils.ParseInt(r.URL.Query().Get("limit"), 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
