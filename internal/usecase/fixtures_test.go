package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"motoparts-backend/config"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/infrastructure/cache"
	"motoparts-backend/internal/repository/memory"
	cachepkg "motoparts-backend/pkg/cache"
)

type testEnv struct {
	products  domain.ProductRepository
	ledger    domain.StockLedger
	orderRepo domain.OrderRepository
	compRepo  domain.CompatibilityRepository
	couponRep domain.CouponRepository
	cache     cachepkg.CacheService

	compat   *CompatibilityUsecase
	catalog  *CatalogUsecase
	orders   *OrderUsecase
	coupons  *CouponUsecase
	loyalty  *LoyaltyUsecase
	checkout *CheckoutUsecase
	cfg      *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		CacheProductTTL:      time.Minute,
		MaxCartQuantity:      1000,
		LoyaltyPointsPerUnit: 1,
		LoyaltySilver:        500,
		LoyaltyGold:          2000,
		LoyaltyPlatinum:      5000,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, testConfig(), nil)
}

// newTestEnvWith lets a test wrap the order repository, e.g. to inject failures.
func newTestEnvWith(t *testing.T, cfg *config.Config, wrapOrders func(domain.OrderRepository) domain.OrderRepository) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		products:  memory.NewProductRepository(store),
		ledger:    memory.NewStockLedger(store),
		orderRepo: memory.NewOrderRepository(store),
		compRepo:  memory.NewCompatibilityRepository(store),
		couponRep: memory.NewCouponRepository(store),
		cache:     cache.NewMemoryCache(time.Minute, time.Minute),
		cfg:       cfg,
	}
	if wrapOrders != nil {
		env.orderRepo = wrapOrders(env.orderRepo)
	}

	env.compat = NewCompatibilityUsecase(env.products, env.compRepo, memory.NewTransactionManager(), env.cache)
	env.catalog = NewCatalogUsecase(env.products, env.compat, env.cache, nil, cfg)
	env.orders = NewOrderUsecase(env.orderRepo, env.products, env.ledger, memory.NewTransactionManager(), env.catalog, nil, cfg)
	env.coupons = NewCouponUsecase(env.couponRep)

	loyalty, err := NewLoyaltyUsecase(memory.NewLoyaltyRepository(store), nil, domain.DefaultTierThresholds, cfg.LoyaltyPointsPerUnit)
	require.NoError(t, err)
	env.loyalty = loyalty
	env.checkout = NewCheckoutUsecase(env.orders, env.coupons, env.loyalty, env.orderRepo, nil)
	return env
}

func (e *testEnv) seedProduct(t *testing.T, id, name, price string, stock int) *domain.Product {
	t.Helper()
	sku := "SKU-" + id
	p := &domain.Product{
		ID:       id,
		SKU:      &sku,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: "brakes",
		Brand:    "Nissin",
		IsActive: true,
	}
	require.NoError(t, e.catalog.CreateProduct(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, id string) int {
	t.Helper()
	n, err := e.ledger.Available(context.Background(), id)
	require.NoError(t, err)
	return n
}

func customer() domain.CustomerInfo {
	return domain.CustomerInfo{Name: "Rahim", Phone: "01700000000", Address: "Dhaka"}
}

func orderInput(items ...domain.CartItem) PlaceOrderInput {
	return PlaceOrderInput{Customer: customer(), Items: items, PaymentMethod: domain.PaymentMethodCOD, ShippingMethod: "standard"}
}

func line(productID string, qty int) domain.CartItem {
	return domain.CartItem{ProductID: productID, Quantity: qty}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
