package v1

import (
	"errors"
	"net/http"

	"motoparts-backend/internal/delivery/http/middleware"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type AdminCatalogHandler struct {
	catalogUC       *usecase.CatalogUsecase
	compatibilityUC *usecase.CompatibilityUsecase
	maxUploadMB     int64
}

func NewAdminCatalogHandler(catalog *usecase.CatalogUsecase, compatibility *usecase.CompatibilityUsecase, maxUploadMB int64) *AdminCatalogHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &AdminCatalogHandler{catalogUC: catalog, compatibilityUC: compatibility, maxUploadMB: maxUploadMB}
}

// ListProducts includes inactive products unless ?active= narrows it.
func (h *AdminCatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if val := r.URL.Query().Get("active"); val != "" {
		active := utils.ParseBool(val, true)
		filter.IsActive = &active
	}

	page, err := h.catalogUC.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: page.Products, Meta: page.Pagination})
}

func (h *AdminCatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogUC.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: product})
}

func (h *AdminCatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := utils.DecodeJSON(r, &product); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := h.catalogUC.CreateProduct(r.Context(), &product); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, domain.Response{Success: true, Message: "Product created", Data: product})
}

func (h *AdminCatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := utils.DecodeJSON(r, &product); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	product.ID = r.PathValue("id")

	if err := h.catalogUC.UpdateProduct(r.Context(), &product); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Product updated", Data: product})
}

func (h *AdminCatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogUC.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Product deleted"})
}

func (h *AdminCatalogHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	var actorID string
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		actorID = user.ID
	}
	stock, err := h.catalogUC.Restock(r.Context(), r.PathValue("id"), req.Quantity, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Stock updated", Data: map[string]int{"stock": stock}})
}

// UploadImage accepts a multipart "file" field, re-encodes it and appends the URL to
// the product's gallery.
func (h *AdminCatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB<<20)
	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if !utils.IsImage(header.Header.Get("Content-Type")) {
		utils.WriteError(w, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}

	url, err := h.catalogUC.AddProductImage(r.Context(), r.PathValue("id"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, domain.Response{Success: true, Data: map[string]string{"url": url}})
}

// SetCompatibility replaces the product's manually entered fitments. Rule-derived
// entries are left alone.
func (h *AdminCatalogHandler) SetCompatibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []domain.CompatibilityEntry `json:"entries"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	id := r.PathValue("id")
	if err := h.compatibilityUC.SetManualCompatibility(r.Context(), id, req.Entries); err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.catalogUC.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Message: "Compatibility updated", Data: product})
}

func (h *AdminCatalogHandler) InventoryLogs(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	logs, total, err := h.catalogUC.GetInventoryLogs(r.Context(), r.URL.Query().Get("product_id"), limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: logs, Meta: domain.NewPagination(page, limit, total)})
}
