package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"motoparts-backend/internal/domain"
)

type productRepository struct {
	s *Store
}

func NewProductRepository(s *Store) domain.ProductRepository {
	return &productRepository{s: s}
}

func (r *productRepository) GetProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.Product
	for _, p := range r.s.products {
		if filter.Match(p) {
			matched = append(matched, cloneProduct(p))
		}
	}
	domain.SortProducts(matched, filter.Sort)

	start, end := paginate(len(matched), filter.Limit, filter.Offset)
	page := make([]domain.Product, end-start)
	copy(page, matched[start:end])
	return page, int64(len(matched)), nil
}

func (r *productRepository) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

func (r *productRepository) GetProductsByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *productRepository) CreateProduct(_ context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if _, exists := r.s.products[product.ID]; exists {
		return domain.ErrConflict
	}
	if product.SKU != nil && r.skuTaken(*product.SKU, product.ID) {
		return domain.ErrConflict
	}
	now := r.s.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.s.products[product.ID] = cloneProduct(*product)
	return nil
}

// UpdateProduct rewrites the descriptive fields. Stock, images and compatibility have
// their own operations and are left untouched.
func (r *productRepository) UpdateProduct(_ context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.products[product.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if product.SKU != nil && r.skuTaken(*product.SKU, product.ID) {
		return domain.ErrConflict
	}
	next := cloneProduct(*product)
	next.Stock = current.Stock
	next.Images = current.Images
	next.Compatibility = current.Compatibility
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.s.now()
	r.s.products[product.ID] = next

	*product = cloneProduct(next)
	return nil
}

func (r *productRepository) DeleteProduct(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *productRepository) AddProductImage(_ context.Context, id, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Images = append(cloneStrings(p.Images), url)
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r *productRepository) Restock(_ context.Context, id string, quantity int, reason, referenceID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.Stock += quantity
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	r.s.logInventory(id, quantity, reason, referenceID)
	return p.Stock, nil
}

func (r *productRepository) GetInventoryLogs(_ context.Context, productID string, limit, offset int) ([]domain.InventoryLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var logs []domain.InventoryLog
	// Newest first.
	for i := len(r.s.inventoryLogs) - 1; i >= 0; i-- {
		l := r.s.inventoryLogs[i]
		if productID != "" && l.ProductID != productID {
			continue
		}
		logs = append(logs, l)
	}
	start, end := paginate(len(logs), limit, offset)
	return append([]domain.InventoryLog{}, logs[start:end]...), int64(len(logs)), nil
}

func (r *productRepository) MutateCompatibility(_ context.Context, productID string, fn func([]domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	next, err := fn(cloneProduct(p).Compatibility)
	if err != nil {
		return err
	}
	p.Compatibility = next
	p.UpdatedAt = r.s.now()
	r.s.products[productID] = cloneProduct(p)
	return nil
}

func (r *productRepository) FindByCompatibilityBrand(_ context.Context, brand string) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	brand = strings.TrimSpace(brand)
	var out []domain.Product
	for _, p := range r.s.products {
		for _, e := range p.Compatibility {
			if strings.EqualFold(strings.TrimSpace(e.Brand), brand) {
				out = append(out, cloneProduct(p))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepository) skuTaken(sku, exceptID string) bool {
	for id, p := range r.s.products {
		if id != exceptID && p.SKU != nil && strings.EqualFold(*p.SKU, sku) {
			return true
		}
	}
	return false
}
