package v1

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/usecase"
	"motoparts-backend/pkg/utils"
)

type CatalogHandler struct {
	catalogUC       *usecase.CatalogUsecase
	compatibilityUC *usecase.CompatibilityUsecase
}

func NewCatalogHandler(catalog *usecase.CatalogUsecase, compatibility *usecase.CompatibilityUsecase) *CatalogHandler {
	return &CatalogHandler{catalogUC: catalog, compatibilityUC: compatibility}
}

// productFilterFromQuery reads the listing query string shared by the storefront and
// the admin listing.
func productFilterFromQuery(r *http.Request) (domain.ProductFilter, error) {
	query := r.URL.Query()
	page, limit := pageParams(r)

	filter := domain.ProductFilter{
		Category:    query.Get("category"),
		Brand:       query.Get("brand"),
		Query:       query.Get("q"),
		Sort:        query.Get("sort"),
		InStockOnly: utils.ParseBool(query.Get("in_stock"), false),
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}

	for param, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := strings.TrimSpace(query.Get(param))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, domain.NewValidationError(param, "must be a number")
		}
		*dst = &d
	}

	if brand := strings.TrimSpace(query.Get("brand_moto")); brand != "" {
		sel := &domain.MotorcycleSelector{Brand: brand, Model: strings.TrimSpace(query.Get("model_moto"))}
		if raw := query.Get("year_moto"); raw != "" {
			year := utils.ParseIntPtr(raw)
			if year == nil {
				return filter, domain.NewValidationError("year_moto", "must be a year")
			}
			sel.Year = year
		}
		filter.Motorcycle = sel
	} else if query.Get("model_moto") != "" || query.Get("year_moto") != "" {
		return filter, domain.NewValidationError("brand_moto", "required when model_moto or year_moto is set")
	}
	return filter, nil
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	active := true
	filter.IsActive = &active

	page, err := h.catalogUC.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: page.Products, Meta: page.Pagination})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogUC.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !product.IsActive {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: product})
}

// GetCompatibility lists the motorcycles a product fits. With ?brand= (and optionally
// model, year) it also answers whether that one motorcycle fits.
func (h *CatalogHandler) GetCompatibility(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	compat, err := h.compatibilityUC.MotorcyclesForProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	brand := strings.TrimSpace(query.Get("brand"))
	if brand == "" {
		utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: compat})
		return
	}

	sel := domain.MotorcycleSelector{Brand: brand, Model: strings.TrimSpace(query.Get("model"))}
	if raw := query.Get("year"); raw != "" {
		if sel.Year = utils.ParseIntPtr(raw); sel.Year == nil {
			writeError(w, r, domain.NewValidationError("year", "must be a year"))
			return
		}
	}
	fits, err := h.compatibilityUC.IsCompatible(r.Context(), id, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: map[string]interface{}{
		"productId":      compat.ProductID,
		"isUniversal":    compat.IsUniversal,
		"motorcycles":    compat.Motorcycles,
		"compatible":     fits,
		"checkedAgainst": sel,
	}})
}

func (h *CatalogHandler) Brands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.compatibilityUC.Brands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: brands})
}

func (h *CatalogHandler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.compatibilityUC.Models(r.Context(), r.URL.Query().Get("brand"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: models})
}

func (h *CatalogHandler) Years(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	years, err := h.compatibilityUC.Years(r.Context(), query.Get("brand"), query.Get("model"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: years})
}
