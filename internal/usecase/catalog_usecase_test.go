package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/utils"
)

type countingProductRepo struct {
	domain.ProductRepository
	listCalls atomic.Int32
}

func (r *countingProductRepo) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	r.listCalls.Add(1)
	return r.ProductRepository.GetProducts(ctx, filter)
}

type fakeImageStore struct {
	uploaded []string
	deleted  []string
}

func (s *fakeImageStore) UploadBuffer(_ context.Context, prefix string, _ []byte, contentType string) (string, error) {
	url := "https://cdn.example.com/" + prefix + "/1.webp"
	s.uploaded = append(s.uploaded, url)
	return url, nil
}

func (s *fakeImageStore) DeleteFile(_ context.Context, fileURL string) error {
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func TestListProducts_FiltersAndSorts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, p := range []*domain.Product{
		{ID: "a", Name: "Brake Pad", Price: decimal.NewFromInt(10), Stock: 3, Category: "brakes", IsActive: true,
			Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG150", Year: "2015-2020"}}},
		{ID: "b", Name: "Brake Disc", Price: decimal.NewFromInt(30), Stock: 0, Category: "brakes", IsActive: true,
			Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG150"}}},
		{ID: "c", Name: "Air Filter", Price: decimal.NewFromInt(8), Stock: 9, Category: "engine", IsActive: true,
			Compatibility: []domain.CompatibilityEntry{{Brand: "Yamaha", Model: "FZ"}}},
	} {
		require.NoError(t, env.catalog.CreateProduct(ctx, p))
	}

	page, err := env.catalog.ListProducts(ctx, domain.ProductFilter{
		Motorcycle: &domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2019)},
		Sort:       domain.SortPriceDesc,
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "b", page.Products[0].ID)
	assert.Equal(t, int64(2), page.Pagination.TotalItems)

	page, err = env.catalog.ListProducts(ctx, domain.ProductFilter{
		Motorcycle:  &domain.MotorcycleSelector{Brand: "Honda", Year: intPtr(2019)},
		InStockOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "a", page.Products[0].ID)

	page, err = env.catalog.ListProducts(ctx, domain.ProductFilter{Motorcycle: &domain.MotorcycleSelector{Brand: "Suzuki"}})
	require.NoError(t, err)
	assert.Empty(t, page.Products)

	_, err = env.catalog.ListProducts(ctx, domain.ProductFilter{Sort: "random"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.catalog.ListProducts(ctx, domain.ProductFilter{MinPrice: decimalPtr("10"), MaxPrice: decimalPtr("5")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListProducts_CachesAndInvalidatesOnStockChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	counting := &countingProductRepo{ProductRepository: env.products}
	env.catalog = NewCatalogUsecase(counting, env.compat, env.cache, nil, env.cfg)
	env.orders = NewOrderUsecase(env.orderRepo, env.products, env.ledger, noTx{}, env.catalog, nil, env.cfg)

	env.seedProduct(t, "piston", "Piston Kit", "55.00", 2)
	filter := domain.ProductFilter{InStockOnly: true}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := env.catalog.ListProducts(ctx, filter)
			assert.NoError(t, err)
			assert.Len(t, page.Products, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), counting.listCalls.Load())

	_, err := env.orders.PlaceOrder(ctx, orderInput(line("piston", 2)))
	require.NoError(t, err)

	page, err := env.catalog.ListProducts(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, page.Products, "sold-out products leave the in-stock listing")
	assert.Equal(t, int32(2), counting.listCalls.Load())

	_, err = env.catalog.Restock(ctx, "piston", 4, "admin-1")
	require.NoError(t, err)
	page, err = env.catalog.ListProducts(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, 4, page.Products[0].Stock)

	_, err = env.catalog.Restock(ctx, "piston", 0, "admin-1")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type noTx struct{}

func (noTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sku := "CG-PAD-01"
	p := &domain.Product{Name: "Brake Pad (Front) CG-150", SKU: &sku, Price: decimal.NewFromInt(10), IsActive: true,
		Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG150", Year: "2019"}}}
	require.NoError(t, env.catalog.CreateProduct(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "brake-pad-front-cg-150", p.Slug)
	assert.Equal(t, []string{domain.SourceManual}, p.Compatibility[0].Sources)

	dup := &domain.Product{Name: "Copy", SKU: &sku, IsActive: true}
	assert.ErrorIs(t, env.catalog.CreateProduct(ctx, dup), domain.ErrConflict)

	assert.ErrorIs(t, env.catalog.CreateProduct(ctx, &domain.Product{Name: " "}), domain.ErrValidation)
	assert.ErrorIs(t, env.catalog.CreateProduct(ctx, &domain.Product{Name: "X", Price: decimal.NewFromInt(-1)}), domain.ErrValidation)
	assert.ErrorIs(t, env.catalog.CreateProduct(ctx, &domain.Product{Name: "X", Stock: -1}), domain.ErrValidation)
	assert.ErrorIs(t, env.catalog.CreateProduct(ctx, &domain.Product{Name: "X",
		Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG150", Year: "20x0"}}}), domain.ErrValidation)

	require.NoError(t, env.catalog.DeleteProduct(ctx, p.ID))
	_, err := env.catalog.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddProductImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := &fakeImageStore{}
	env.catalog = NewCatalogUsecase(env.products, env.compat, env.cache, store, env.cfg)
	env.catalog.processImage = func(r io.Reader) ([]byte, string, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, "", err
		}
		if string(data) != "png-bytes" {
			return nil, "", utils.ErrNotAnImage
		}
		return data, "image/webp", nil
	}
	env.seedProduct(t, "pad-front", "Front Brake Pad", "10.00", 5)

	url, err := env.catalog.AddProductImage(ctx, "pad-front", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/products/pad-front/1.webp", url)

	p, err := env.catalog.GetProduct(ctx, "pad-front")
	require.NoError(t, err)
	assert.Equal(t, []string{url}, p.Images)

	_, err = env.catalog.AddProductImage(ctx, "pad-front", strings.NewReader("text"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.catalog.AddProductImage(ctx, "ghost", strings.NewReader("png-bytes"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, store.uploaded, 1)

	bare := NewCatalogUsecase(env.products, env.compat, env.cache, nil, env.cfg)
	_, err = bare.AddProductImage(ctx, "pad-front", strings.NewReader("png-bytes"))
	assert.True(t, err != nil && !errors.Is(err, domain.ErrNotFound))
}
