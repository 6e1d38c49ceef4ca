//go:build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"motoparts-backend/config"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/repository/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(connStr, filepath.Join(findProjectRoot(t), "migrations")))

	pool, err := postgres.NewPgxPool(ctx, &config.Config{
		DBUrl:             connStr,
		DBMaxConns:        20,
		DBMinConns:        1,
		DBMaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func seedProduct(t *testing.T, repo domain.ProductRepository, id string, stock int) {
	t.Helper()
	require.NoError(t, repo.CreateProduct(context.Background(), &domain.Product{
		ID: id, Name: "Part " + id, Price: decimal.RequireFromString("12.50"), Stock: stock, IsActive: true,
		Category: "brakes",
	}))
}

func TestStockLedger_NeverOversells(t *testing.T) {
	pool := setupTestDB(t)
	products := postgres.NewProductRepository(pool)
	ledger := postgres.NewStockLedger(pool)
	ctx := context.Background()
	seedProduct(t, products, "chain", 10)

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(ctx, "chain", 1, "order-x"); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	left, err := ledger.Available(ctx, "chain")
	require.NoError(t, err)
	assert.Zero(t, left)

	assert.ErrorIs(t, ledger.Reserve(ctx, "ghost", 1, "order-x"), domain.ErrNotFound)
	require.NoError(t, ledger.Release(ctx, "chain", 3, "order-x"))

	logs, total, err := products.GetInventoryLogs(ctx, "chain", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	assert.Equal(t, domain.InventoryReasonReleased, logs[0].Reason)
}

func TestProductRepository_FiltersAndCompatibility(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewProductRepository(pool)
	ctx := context.Background()
	seedProduct(t, repo, "pad", 5)
	seedProduct(t, repo, "disc", 0)

	err := repo.MutateCompatibility(ctx, "pad", func(cur []domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error) {
		return append(cur, domain.CompatibilityEntry{Brand: "Honda", Model: "CG150", Year: "2015-2020", Sources: []string{"rule-1"}}), nil
	})
	require.NoError(t, err)

	found, err := repo.FindByCompatibilityBrand(ctx, " honda ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"rule-1"}, found[0].Compatibility[0].Sources)

	products, total, err := repo.GetProducts(ctx, domain.ProductFilter{InStockOnly: true, Category: "BRAKES"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "pad", products[0].ID)

	products, _, err = repo.GetProducts(ctx, domain.ProductFilter{ProductIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, products)

	stock, err := repo.Restock(ctx, "disc", 4, domain.InventoryReasonRestock, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
	_, err = repo.Restock(ctx, "ghost", 4, domain.InventoryReasonRestock, "admin-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sku := "SKU-1"
	p := &domain.Product{ID: "a", SKU: &sku, Name: "A", IsActive: true}
	require.NoError(t, repo.CreateProduct(ctx, p))
	lower := "sku-1"
	assert.ErrorIs(t, repo.CreateProduct(ctx, &domain.Product{ID: "b", SKU: &lower, Name: "B"}), domain.ErrConflict)
}

func TestOrderRepository_StatusCompareAndSet(t *testing.T) {
	pool := setupTestDB(t)
	orders := postgres.NewOrderRepository(pool)
	tm := postgres.NewTransactionManager(pool)
	ctx := context.Background()

	order := &domain.Order{
		Customer:      domain.CustomerInfo{Name: "Rahim", Phone: "01700000000"},
		Total:         decimal.RequireFromString("25.00"),
		PaymentMethod: "cod",
		Items: []domain.OrderItem{
			{ProductID: "pad", Name: "Pad", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
			{ProductID: "filter", Name: "Filter", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
		},
	}
	require.NoError(t, tm.Do(ctx, func(ctx context.Context) error {
		if err := orders.CreateOrder(ctx, order); err != nil {
			return err
		}
		return orders.CreateOrderHistory(ctx, &domain.OrderHistory{OrderID: order.ID, NewStatus: domain.OrderStatusPending})
	}))

	stored, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "pad", stored.Items[0].ProductID)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(25)))

	require.NoError(t, orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusProcessing))
	assert.ErrorIs(t, orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled), domain.ErrConflict)
	assert.ErrorIs(t, orders.UpdateStatus(ctx, "ghost", domain.OrderStatusPending, domain.OrderStatusCancelled), domain.ErrNotFound)

	require.NoError(t, orders.ApplyDiscount(ctx, order.ID, "SUMMER10", decimal.RequireFromString("2.50")))
	list, total, err := orders.GetAll(ctx, domain.OrderFilter{Search: "rahim", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SUMMER10", list[0].CouponCode)

	history, err := orders.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCouponRepository_UsageBudget(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	ctx := context.Background()

	maxUses := 1
	c := &domain.Coupon{Code: " once ", Type: domain.CouponTypeFixed, Value: decimal.NewFromInt(5), MaxUses: &maxUses, IsActive: true}
	require.NoError(t, repo.CreateCoupon(ctx, c))
	assert.Equal(t, "ONCE", c.Code)

	require.NoError(t, repo.IncrementCouponUsage(ctx, c.ID))
	assert.ErrorIs(t, repo.IncrementCouponUsage(ctx, c.ID), domain.ErrConflict)
	assert.ErrorIs(t, repo.IncrementCouponUsage(ctx, "ghost"), domain.ErrNotFound)

	got, err := repo.GetCouponByCode(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)

	assert.ErrorIs(t, repo.CreateCoupon(ctx, &domain.Coupon{Code: "ONCE", Type: domain.CouponTypeFixed, Value: decimal.NewFromInt(1)}), domain.ErrConflict)
}

func TestLoyaltyRepository_AdjustPoints(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewLoyaltyRepository(pool)
	ctx := context.Background()
	tiers := domain.DefaultTierThresholds

	_, err := repo.GetProgram(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := repo.AdjustPoints(ctx, "user-1", 600, tiers, domain.PointsEntry{Type: domain.PointsEarned, Amount: 600})
	require.NoError(t, err)
	assert.Equal(t, domain.TierSilver, p.Tier)

	_, err = repo.AdjustPoints(ctx, "user-1", -601, tiers, domain.PointsEntry{Type: domain.PointsRedeemed, Amount: 601})
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	p, err = repo.AdjustPoints(ctx, "user-1", -200, tiers, domain.PointsEntry{Type: domain.PointsRedeemed, Amount: 200})
	require.NoError(t, err)
	assert.Equal(t, 400, p.Points)
	assert.Equal(t, domain.TierBronze, p.Tier)
	assert.Len(t, p.History, 2)
}

func TestCompatibilityRepository_Rules(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCompatibilityRepository(pool)
	ctx := context.Background()

	m := &domain.MotorcycleModel{Brand: "Honda", Model: "CG150", Years: []int{2018, 2019}}
	require.NoError(t, repo.CreateMotorcycleModel(ctx, m))
	assert.ErrorIs(t, repo.CreateMotorcycleModel(ctx, &domain.MotorcycleModel{Brand: " honda", Model: "cg150 "}), domain.ErrConflict)

	rule := &domain.CompatibilityRule{ProductIDs: []string{"pad"}, MotorcycleIDs: []string{m.ID}}
	require.NoError(t, repo.CreateRule(ctx, rule))
	require.NoError(t, repo.CreateRule(ctx, &domain.CompatibilityRule{ProductIDs: []string{"oil"}, IsUniversal: true}))

	byMoto, err := repo.ListRulesByMotorcycle(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, byMoto, 1)
	assert.Equal(t, rule.ID, byMoto[0].ID)

	universal, err := repo.ListUniversalRules(ctx)
	require.NoError(t, err)
	assert.Len(t, universal, 1)

	require.NoError(t, repo.DeleteRule(ctx, rule.ID))
	assert.ErrorIs(t, repo.DeleteRule(ctx, rule.ID), domain.ErrNotFound)
}
