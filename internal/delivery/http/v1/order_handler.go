package v1

import (
	"net/http"

	"motoparts-backend/internal/delivery/http/middleware"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type OrderHandler struct {
	orderUC    *usecase.OrderUsecase
	checkoutUC *usecase.CheckoutUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, checkout *usecase.CheckoutUsecase) *OrderHandler {
	return &OrderHandler{orderUC: orders, checkoutUC: checkout}
}

// Checkout places an order for the cart in the body. Signed-in callers get the order
// linked to their account and earn loyalty points; guests do not.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req usecase.CheckoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if user, ok := middleware.UserFromContext(r.Context()); ok {
		id := user.ID
		req.UserID = &id
		if req.Customer.Email == "" {
			req.Customer.Email = user.Email
		}
	}

	result, err := h.checkoutUC.Checkout(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, domain.Response{Success: true, Message: "Order placed", Data: result})
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orders, err := h.orderUC.GetOrdersByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: orders})
}

// GetMyOrder hides other customers' orders behind a 404.
func (h *OrderHandler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	order, err := h.orderUC.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order.UserID == nil || *order.UserID != user.ID {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: order})
}
