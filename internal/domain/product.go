package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// --- Interfaces ---

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Product struct {
	ID            string               `json:"id"`
	SKU           *string              `json:"sku"`
	Name          string               `json:"name"`
	Slug          string               `json:"slug"`
	Description   string               `json:"description"`
	Price         decimal.Decimal      `json:"price"`
	Stock         int                  `json:"stock"`
	Category      string               `json:"category"`
	Brand         string               `json:"brand"`
	Images        []string             `json:"images"`
	Compatibility []CompatibilityEntry `json:"compatibility"`
	IsActive      bool                 `json:"isActive"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Inventory log reasons.
const (
	InventoryReasonReserved  = "order_reserved"
	InventoryReasonReleased  = "order_released"
	InventoryReasonRestock   = "restock"
	InventoryReasonCancelled = "order_cancelled"
)

type InventoryLog struct {
	ID           int64     `json:"id"`
	ProductID    string    `json:"productId"`
	ChangeAmount int       `json:"changeAmount"` // +10 or -5
	Reason       string    `json:"reason"`
	ReferenceID  string    `json:"referenceId"` // OrderID or admin UserID
	CreatedAt    time.Time `json:"createdAt"`
}

// Product sort keys.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
)

type ProductFilter struct {
	Category    string
	Brand       string
	Query       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Motorcycle  *MotorcycleSelector
	InStockOnly bool
	IsActive    *bool // nil = all
	Sort        string
	Limit       int
	Offset      int

	// ProductIDs restricts the result to these ids when non-nil. An empty, non-nil
	// slice matches nothing. Filled by the catalog from the Motorcycle selector.
	ProductIDs []string
}

// CacheKey renders every field that changes the result set.
func (f ProductFilter) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "products:c=%s:b=%s:q=%s", normalize(f.Category), normalize(f.Brand), normalize(f.Query))
	if f.MinPrice != nil {
		fmt.Fprintf(&b, ":min=%s", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, ":max=%s", f.MaxPrice.String())
	}
	if f.Motorcycle != nil {
		fmt.Fprintf(&b, ":moto=%s", f.Motorcycle.String())
	}
	if f.IsActive != nil {
		fmt.Fprintf(&b, ":active=%t", *f.IsActive)
	}
	if f.ProductIDs != nil {
		ids := append([]string(nil), f.ProductIDs...)
		sort.Strings(ids)
		fmt.Fprintf(&b, ":ids=%s", strings.Join(ids, ","))
	}
	fmt.Fprintf(&b, ":stock=%t:s=%s:l=%d:o=%d", f.InStockOnly, f.Sort, f.Limit, f.Offset)
	return b.String()
}

// Match applies every non-id predicate of the filter to a single product.
// Used by the in-memory store; the Postgres store translates the same rules to SQL.
func (f ProductFilter) Match(p Product) bool {
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(f.Category), p.Category) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(strings.TrimSpace(f.Brand), p.Brand) {
		return false
	}
	if q := normalize(f.Query); q != "" {
		sku := ""
		if p.SKU != nil {
			sku = *p.SKU
		}
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(sku), q) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStockOnly && p.Stock <= 0 {
		return false
	}
	if f.ProductIDs != nil {
		found := false
		for _, id := range f.ProductIDs {
			if id == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SortProducts orders in place by the filter's sort key; unknown keys fall back to newest.
func SortProducts(products []Product, key string) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch key {
		case SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		case SortNameAsc:
			if !strings.EqualFold(a.Name, b.Name) {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// --- Interfaces ---

type ProductRepository interface {
	GetProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	GetProductByID(ctx context.Context, id string) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]Product, error)

	// Admin Management
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id string) error
	AddProductImage(ctx context.Context, id, url string) error

	// Restock adds quantity and logs it under reason. Returns the new stock level.
	Restock(ctx context.Context, id string, quantity int, reason, referenceID string) (int, error)
	GetInventoryLogs(ctx context.Context, productID string, limit, offset int) ([]InventoryLog, int64, error)

	// MutateCompatibility replaces a product's entries with fn's result while holding the
	// product exclusively, so concurrent rule applications never lose each other's writes.
	MutateCompatibility(ctx context.Context, productID string, fn func([]CompatibilityEntry) ([]CompatibilityEntry, error)) error
	// FindByCompatibilityBrand returns products carrying at least one entry for the brand.
	FindByCompatibilityBrand(ctx context.Context, brand string) ([]Product, error)
}

// StockLedger owns the per-product available-quantity counters.
// Reserve is all-or-nothing for one product: it either takes the full quantity or
// fails with ErrInsufficientStock, and never drives stock below zero.
type StockLedger interface {
	Reserve(ctx context.Context, productID string, quantity int, referenceID string) error
	Release(ctx context.Context, productID string, quantity int, referenceID string) error
	Available(ctx context.Context, productID string) (int, error)
}

// ImageStore keeps product photos in object storage and returns their public URLs.
type ImageStore interface {
	UploadBuffer(ctx context.Context, prefix string, data []byte, contentType string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}
