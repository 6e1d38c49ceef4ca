package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"motoparts-backend/config"
	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/cache"
)

const sitemapCacheKey = "sitemap:items"

// sitemapProductLimit keeps one file under the 50k URL cap with room for static pages.
const sitemapProductLimit = 45000

type SitemapItem struct {
	Loc        string
	LastMod    string
	ChangeFreq string
	Priority   float32
}

type SitemapUsecase struct {
	productRepo   domain.ProductRepository
	compatibility *CompatibilityUsecase
	baseURL       string
	cache         cache.CacheService
	cfg           *config.Config
	now           func() time.Time
}

func NewSitemapUsecase(repo domain.ProductRepository, compatibility *CompatibilityUsecase, cache cache.CacheService, cfg *config.Config) *SitemapUsecase {
	return &SitemapUsecase{
		productRepo:   repo,
		compatibility: compatibility,
		baseURL:       strings.TrimRight(cfg.FrontendURL, "/"),
		cache:         cache,
		cfg:           cfg,
		now:           time.Now,
	}
}

// GenerateSitemap lists the storefront pages, every active product and one picker page
// per motorcycle brand.
func (u *SitemapUsecase) GenerateSitemap(ctx context.Context) ([]SitemapItem, error) {
	if val, found := u.cache.Get(sitemapCacheKey); found {
		if items, ok := val.([]SitemapItem); ok {
			return items, nil
		}
	}

	today := u.now().UTC().Format("2006-01-02")
	var items []SitemapItem
	for _, path := range []string{"", "/shop", "/motorcycles"} {
		items = append(items, SitemapItem{Loc: u.baseURL + path, LastMod: today, ChangeFreq: "daily", Priority: 0.8})
	}
	items[0].Priority = 1.0

	active := true
	products, _, err := u.productRepo.GetProducts(ctx, domain.ProductFilter{IsActive: &active, Limit: sitemapProductLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	for _, p := range products {
		items = append(items, SitemapItem{
			Loc:        fmt.Sprintf("%s/product/%s", u.baseURL, p.Slug),
			LastMod:    p.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   0.9,
		})
	}

	if u.compatibility != nil {
		brands, err := u.compatibility.Brands(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch motorcycle brands: %w", err)
		}
		for _, b := range brands {
			items = append(items, SitemapItem{
				Loc:        fmt.Sprintf("%s/motorcycles/%s", u.baseURL, url.PathEscape(strings.ToLower(b))),
				LastMod:    today,
				ChangeFreq: "weekly",
				Priority:   0.7,
			})
		}
	}

	u.cache.Set(sitemapCacheKey, items, u.cfg.CacheSitemapTTL)
	return items, nil
}
