package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"motoparts-backend/internal/domain"
)

type stockLedger struct {
	db *pgxpool.Pool
}

func NewStockLedger(db *pgxpool.Pool) domain.StockLedger {
	return &stockLedger{db: db}
}

// Reserve decrements only while enough stock is left, so concurrent reservations
// serialize on the row lock and never oversell.
func (l *stockLedger) Reserve(ctx context.Context, productID string, quantity int, referenceID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	tag, err := conn(ctx, l.db).Exec(ctx, `
		WITH upd AS (
			UPDATE products SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2
			RETURNING id
		)
		INSERT INTO inventory_logs (product_id, change_amount, reason, reference_id)
		SELECT id, -$2::int, $3, $4 FROM upd`,
		productID, quantity, domain.InventoryReasonReserved, referenceID,
	)
	if err != nil {
		return fmt.Errorf("reserve stock for %s: %w", productID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := l.Available(ctx, productID); err != nil {
		return err
	}
	return domain.ErrInsufficientStock
}

func (l *stockLedger) Release(ctx context.Context, productID string, quantity int, referenceID string) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be positive")
	}
	tag, err := conn(ctx, l.db).Exec(ctx, `
		WITH upd AS (
			UPDATE products SET stock = stock + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id
		)
		INSERT INTO inventory_logs (product_id, change_amount, reason, reference_id)
		SELECT id, $2, $3, $4 FROM upd`,
		productID, quantity, domain.InventoryReasonReleased, referenceID,
	)
	if err != nil {
		return fmt.Errorf("release stock for %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (l *stockLedger) Available(ctx context.Context, productID string) (int, error) {
	var stock int
	if err := conn(ctx, l.db).QueryRow(ctx, "SELECT stock FROM products WHERE id = $1", productID).Scan(&stock); err != nil {
		return 0, translate(err)
	}
	return stock, nil
}
