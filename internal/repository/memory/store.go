// Package memory provides in-process implementations of every repository, used for
// local development (STORE_DRIVER=memory) and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"motoparts-backend/internal/domain"
)

// Store holds all entities behind one mutex, so every multi-field update is atomic.
type Store struct {
	mu sync.Mutex

	products      map[string]domain.Product
	inventoryLogs []domain.InventoryLog
	motorcycles   map[string]domain.MotorcycleModel
	rules         map[string]domain.CompatibilityRule
	orders        map[string]domain.Order
	history       map[string][]domain.OrderHistory
	coupons       map[string]domain.Coupon
	loyalty       map[string]domain.LoyaltyProgram

	nextLogID   int64
	nextEntryID int64
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		motorcycles: make(map[string]domain.MotorcycleModel),
		rules:       make(map[string]domain.CompatibilityRule),
		orders:      make(map[string]domain.Order),
		history:     make(map[string][]domain.OrderHistory),
		coupons:     make(map[string]domain.Coupon),
		loyalty:     make(map[string]domain.LoyaltyProgram),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// TransactionManager runs fn directly. Each repository call is already atomic under
// the store mutex; a failing fn does not roll back calls it already made.
type TransactionManager struct{}

func NewTransactionManager() domain.TransactionManager {
	return TransactionManager{}
}

func (TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) logInventory(productID string, change int, reason, ref string) {
	s.nextLogID++
	s.inventoryLogs = append(s.inventoryLogs, domain.InventoryLog{
		ID:           s.nextLogID,
		ProductID:    productID,
		ChangeAmount: change,
		Reason:       reason,
		ReferenceID:  ref,
		CreatedAt:    s.now(),
	})
}

func paginate(total, limit, offset int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		return total, total
	}
	end = total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}

func cloneProduct(p domain.Product) domain.Product {
	if p.SKU != nil {
		sku := *p.SKU
		p.SKU = &sku
	}
	p.Images = cloneStrings(p.Images)
	if p.Compatibility != nil {
		entries := make([]domain.CompatibilityEntry, len(p.Compatibility))
		for i, e := range p.Compatibility {
			e.Sources = cloneStrings(e.Sources)
			entries[i] = e
		}
		p.Compatibility = entries
	}
	return p
}

func cloneOrder(o domain.Order) domain.Order {
	if o.UserID != nil {
		uid := *o.UserID
		o.UserID = &uid
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func cloneCoupon(c domain.Coupon) domain.Coupon {
	if c.MinPurchase != nil {
		v := *c.MinPurchase
		c.MinPurchase = &v
	}
	if c.MaxUses != nil {
		v := *c.MaxUses
		c.MaxUses = &v
	}
	if c.ValidFrom != nil {
		v := *c.ValidFrom
		c.ValidFrom = &v
	}
	if c.ValidTo != nil {
		v := *c.ValidTo
		c.ValidTo = &v
	}
	return c
}
