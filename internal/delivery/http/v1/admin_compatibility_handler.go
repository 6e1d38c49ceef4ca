package v1

import (
	"net/http"

	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type AdminCompatibilityHandler struct {
	compatibilityUC *usecase.CompatibilityUsecase
}

func NewAdminCompatibilityHandler(uc *usecase.CompatibilityUsecase) *AdminCompatibilityHandler {
	return &AdminCompatibilityHandler{compatibilityUC: uc}
}

// --- Motorcycle models ---

func (h *AdminCompatibilityHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.compatibilityUC.ListMotorcycleModels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: models})
}

func (h *AdminCompatibilityHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	model, err := h.compatibilityUC.GetMotorcycleModel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: model})
}

func (h *AdminCompatibilityHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var model domain.MotorcycleModel
	if err := utils.DecodeJSON(r, &model); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := h.compatibilityUC.CreateMotorcycleModel(r.Context(), &model); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, domain.Response{Success: true, Message: "Motorcycle model created", Data: model})
}

func (h *AdminCompatibilityHandler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	var model domain.MotorcycleModel
	if err := utils.DecodeJSON(r, &model); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	model.ID = r.PathValue("id")
	if err := h.compatibilityUC.UpdateMotorcycleModel(r.Context(), &model); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Motorcycle model updated", Data: model})
}

func (h *AdminCompatibilityHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := h.compatibilityUC.DeleteMotorcycleModel(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Motorcycle model deleted"})
}

// --- Rules ---

func (h *AdminCompatibilityHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.compatibilityUC.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: rules})
}

func (h *AdminCompatibilityHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.compatibilityUC.GetRule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: rule})
}

func (h *AdminCompatibilityHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.CompatibilityRule
	if err := utils.DecodeJSON(r, &rule); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := h.compatibilityUC.CreateRule(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, domain.Response{Success: true, Message: "Rule created", Data: rule})
}

func (h *AdminCompatibilityHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.CompatibilityRule
	if err := utils.DecodeJSON(r, &rule); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	rule.ID = r.PathValue("id")
	if err := h.compatibilityUC.UpdateRule(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Rule updated", Data: rule})
}

func (h *AdminCompatibilityHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.compatibilityUC.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Rule deleted"})
}
