package v1

import (
	"net/http"

	"motoparts-backend/internal/delivery/http/middleware"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type LoyaltyHandler struct {
	loyaltyUC *usecase.LoyaltyUsecase
}

func NewLoyaltyHandler(uc *usecase.LoyaltyUsecase) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyUC: uc}
}

func (h *LoyaltyHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	program, err := h.loyaltyUC.GetProgram(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: program})
}

func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Amount      int    `json:"amount"`
		Description string `json:"description"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	program, err := h.loyaltyUC.RedeemPoints(r.Context(), user.ID, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Points redeemed", Data: program})
}

// Leaderboard is admin-only; it exposes other users' balances.
func (h *LoyaltyHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := h.loyaltyUC.Leaderboard(r.Context(), utils.ParseInt(r.URL.Query().Get("limit"), 10))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: top})
}
