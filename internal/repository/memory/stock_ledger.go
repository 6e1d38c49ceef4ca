package memory

import (
	"context"

	"motoparts-backend/internal/domain"
)

type stockLedger struct {
	s *Store
}

func NewStockLedger(s *Store) domain.StockLedger {
	return &stockLedger{s: s}
}

func (l *stockLedger) Reserve(_ context.Context, productID string, quantity int, referenceID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	p, ok := l.s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	p.Stock -= quantity
	l.s.products[productID] = p
	l.s.logInventory(productID, -quantity, domain.InventoryReasonReserved, referenceID)
	return nil
}

func (l *stockLedger) Release(_ context.Context, productID string, quantity int, referenceID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	p, ok := l.s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock += quantity
	l.s.products[productID] = p
	l.s.logInventory(productID, quantity, domain.InventoryReasonReleased, referenceID)
	return nil
}

func (l *stockLedger) Available(_ context.Context, productID string) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	p, ok := l.s.products[productID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p.Stock, nil
}
