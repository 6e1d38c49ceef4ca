package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"motoparts-backend/config"
	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/cache"
	"motoparts-backend/pkg/logger"
	"motoparts-backend/pkg/utils"
)

const (
	productListCachePrefix = "products:"
	defaultPageSize        = 20
	maxPageSize            = 100
)

// ImageProcessor normalizes an uploaded photo before it is stored.
type ImageProcessor func(r io.Reader) ([]byte, string, error)

type ProductPage struct {
	Products   []domain.Product  `json:"products"`
	Pagination domain.Pagination `json:"pagination"`
}

type CatalogUsecase struct {
	repo          domain.ProductRepository
	compatibility *CompatibilityUsecase
	cache         cache.CacheService
	images        domain.ImageStore
	processImage  ImageProcessor
	cfg           *config.Config
	group         singleflight.Group
}

func NewCatalogUsecase(repo domain.ProductRepository, compatibility *CompatibilityUsecase, cache cache.CacheService, images domain.ImageStore, cfg *config.Config) *CatalogUsecase {
	return &CatalogUsecase{
		repo:          repo,
		compatibility: compatibility,
		cache:         cache,
		images:        images,
		processImage:  utils.ProcessImage,
		cfg:           cfg,
	}
}

// ListProducts serves the storefront listing. Identical concurrent misses share one
// repository call.
func (uc *CatalogUsecase) ListProducts(ctx context.Context, filter domain.ProductFilter) (*ProductPage, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	key := filter.CacheKey()
	if val, found := uc.cache.Get(key); found {
		return val.(*ProductPage), nil
	}

	val, err, _ := uc.group.Do(key, func() (interface{}, error) {
		if val, found := uc.cache.Get(key); found {
			return val, nil
		}
		page, err := uc.loadProducts(ctx, filter)
		if err != nil {
			return nil, err
		}
		uc.cache.Set(key, page, uc.cfg.CacheProductTTL)
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*ProductPage), nil
}

func (uc *CatalogUsecase) loadProducts(ctx context.Context, filter domain.ProductFilter) (*ProductPage, error) {
	if filter.Motorcycle != nil {
		ids, err := uc.compatibility.ProductsCompatibleWith(ctx, *filter.Motorcycle, filter.Category)
		if err != nil {
			return nil, err
		}
		filter.ProductIDs = ids
	}

	products, total, err := uc.repo.GetProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	page := filter.Offset/filter.Limit + 1
	return &ProductPage{
		Products:   products,
		Pagination: domain.NewPagination(page, filter.Limit, total),
	}, nil
}

func normalizeFilter(f *domain.ProductFilter) error {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch f.Sort {
	case "":
		f.Sort = domain.SortNewest
	case domain.SortNewest, domain.SortPriceAsc, domain.SortPriceDesc, domain.SortNameAsc:
	default:
		return domain.NewValidationError("sort", "unknown sort %q", f.Sort)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return domain.NewValidationError("price", "min price exceeds max price")
	}
	if f.Motorcycle != nil {
		if err := f.Motorcycle.Validate(); err != nil {
			return err
		}
	}
	// Selector-derived ids are computed here, never accepted from callers.
	f.ProductIDs = nil
	return nil
}

func (uc *CatalogUsecase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return uc.repo.GetProductByID(ctx, id)
}

func (uc *CatalogUsecase) CreateProduct(ctx context.Context, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if product.Stock < 0 {
		return domain.NewValidationError("stock", "must not be negative")
	}
	for i, e := range product.Compatibility {
		if err := domain.ValidateYearExpression(e.Year); err != nil {
			return domain.NewValidationError(fmt.Sprintf("compatibility[%d]", i), "malformed year expression %q", e.Year)
		}
	}
	if product.Slug == "" {
		product.Slug = utils.GenerateSlug(product.Name)
	}
	// Inline entries typed in with the product count as manual.
	product.Compatibility = domain.MergeEntries(nil, product.Compatibility, domain.SourceManual)

	if err := uc.repo.CreateProduct(ctx, product); err != nil {
		return uc.productWriteError(err)
	}
	uc.invalidateListings()
	return nil
}

// UpdateProduct changes descriptive fields and price. Orders already placed keep
// their snapshot.
func (uc *CatalogUsecase) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if product.Slug == "" {
		product.Slug = utils.GenerateSlug(product.Name)
	}
	if err := uc.repo.UpdateProduct(ctx, product); err != nil {
		return uc.productWriteError(err)
	}
	uc.invalidateListings()
	return nil
}

func (uc *CatalogUsecase) DeleteProduct(ctx context.Context, id string) error {
	if err := uc.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	uc.invalidateListings()
	return nil
}

// Restock adds received goods to a product's stock.
func (uc *CatalogUsecase) Restock(ctx context.Context, productID string, quantity int, actorID string) (int, error) {
	if quantity <= 0 {
		return 0, domain.NewValidationError("quantity", "must be positive")
	}
	stock, err := uc.repo.Restock(ctx, productID, quantity, domain.InventoryReasonRestock, actorID)
	if err != nil {
		return 0, err
	}
	uc.invalidateListings()
	return stock, nil
}

func (uc *CatalogUsecase) GetInventoryLogs(ctx context.Context, productID string, limit, offset int) ([]domain.InventoryLog, int64, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return uc.repo.GetInventoryLogs(ctx, productID, limit, offset)
}

// AddProductImage converts the upload, stores it and attaches the URL to the product.
func (uc *CatalogUsecase) AddProductImage(ctx context.Context, productID string, r io.Reader) (string, error) {
	if uc.images == nil {
		return "", errors.New("image storage is not configured")
	}
	if _, err := uc.repo.GetProductByID(ctx, productID); err != nil {
		return "", err
	}

	data, contentType, err := uc.processImage(r)
	if err != nil {
		if errors.Is(err, utils.ErrNotAnImage) {
			return "", domain.NewValidationError("file", "not a supported image")
		}
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	url, err := uc.images.UploadBuffer(ctx, "products/"+productID, data, contentType)
	if err != nil {
		return "", err
	}

	if err := uc.repo.AddProductImage(ctx, productID, url); err != nil {
		if delErr := uc.images.DeleteFile(context.WithoutCancel(ctx), url); delErr != nil {
			logger.WithContext(ctx).Warn().Err(delErr).Str("url", url).Msg("Orphaned product image")
		}
		return "", err
	}
	uc.invalidateListings()
	return url, nil
}

// InvalidateListings drops every cached listing. Stock changes made outside the
// catalog call it so in-stock filters stay honest.
func (uc *CatalogUsecase) InvalidateListings() {
	uc.invalidateListings()
}

func (uc *CatalogUsecase) invalidateListings() {
	uc.cache.DeletePrefix(productListCachePrefix)
}

func (uc *CatalogUsecase) productWriteError(err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: a product with this id or SKU already exists", domain.ErrConflict)
	}
	return err
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Brand = strings.TrimSpace(p.Brand)
	if p.SKU != nil {
		sku := strings.TrimSpace(*p.SKU)
		if sku == "" {
			p.SKU = nil
		} else {
			p.SKU = &sku
		}
	}
	if p.Name == "" {
		return domain.NewValidationError("name", "name is required")
	}
	if p.Price.LessThan(decimal.Zero) {
		return domain.NewValidationError("price", "must not be negative")
	}
	return nil
}
