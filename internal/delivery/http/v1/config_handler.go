package v1

import (
	"net/http"
	"time"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/cache"
	"motoparts-backend/pkg/utils"
)

const enumsCacheKey = "system:config:enums"

type ConfigHandler struct {
	cache cache.CacheService
	tiers domain.TierThresholds
}

func NewConfigHandler(cache cache.CacheService, tiers domain.TierThresholds) *ConfigHandler {
	return &ConfigHandler{cache: cache, tiers: tiers}
}

// GET /api/v1/config/enums
func (h *ConfigHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if val, found := h.cache.Get(enumsCacheKey); found {
		utils.WriteJSON(w, http.StatusOK, val)
		return
	}

	response := map[string]interface{}{
		"orderStatuses":  domain.OrderStatuses,
		"paymentMethods": domain.PaymentMethods,
		"couponTypes":    []domain.CouponType{domain.CouponTypePercentage, domain.CouponTypeFixed},
		"sortOptions":    []string{domain.SortNewest, domain.SortPriceAsc, domain.SortPriceDesc, domain.SortNameAsc},
		"loyaltyTiers": map[domain.Tier]int{
			domain.TierBronze:   0,
			domain.TierSilver:   h.tiers.Silver,
			domain.TierGold:     h.tiers.Gold,
			domain.TierPlatinum: h.tiers.Platinum,
		},
	}

	h.cache.Set(enumsCacheKey, response, time.Hour)
	utils.WriteJSON(w, http.StatusOK, response)
}
