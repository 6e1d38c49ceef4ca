package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"motoparts-backend/config"
	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/metrics"
	"motoparts-backend/pkg/logger"
)

// ListingInvalidator drops cached catalog listings after stock moves.
type ListingInvalidator interface {
	InvalidateListings()
}

type PlaceOrderInput struct {
	UserID         *string             `json:"-"`
	Customer       domain.CustomerInfo `json:"customer"`
	Items          []domain.CartItem   `json:"items"`
	PaymentMethod  string              `json:"paymentMethod"`
	ShippingMethod string              `json:"shippingMethod"`
	Notes          string              `json:"notes"`
}

type OrderUsecase struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	ledger      domain.StockLedger
	txManager   domain.TransactionManager
	listings    ListingInvalidator
	metrics     *metrics.Metrics
	cfg         *config.Config
	now         func() time.Time
}

func NewOrderUsecase(
	orderRepo domain.OrderRepository,
	productRepo domain.ProductRepository,
	ledger domain.StockLedger,
	txManager domain.TransactionManager,
	listings ListingInvalidator,
	m *metrics.Metrics,
	cfg *config.Config,
) *OrderUsecase {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &OrderUsecase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		ledger:      ledger,
		txManager:   txManager,
		listings:    listings,
		metrics:     m,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type reservation struct {
	productID string
	quantity  int
}

// PlaceOrder reserves stock for every line and persists the order as pending. Either
// every line is reserved and the order exists, or nothing is reserved.
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	start := time.Now()
	order, result, err := u.placeOrder(ctx, in)
	u.metrics.RecordPlacement(ctx, result, time.Since(start).Seconds())
	return order, err
}

func (u *OrderUsecase) placeOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, string, error) {
	lines, err := u.validatePlacement(&in)
	if err != nil {
		return nil, metrics.ResultInvalid, err
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := u.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, metrics.ResultError, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.IsActive {
			return nil, metrics.ResultInvalid, domain.NewValidationError(fmt.Sprintf("items[%d].productId", i), "product %s not found", l.ProductID)
		}
	}

	orderID := uuid.NewString()

	// 1. Reserve every line, remembering what was taken
	var (
		reserved []reservation
		short    []string
	)
	for _, l := range lines {
		err := u.ledger.Reserve(ctx, l.ProductID, l.Quantity, orderID)
		switch {
		case err == nil:
			reserved = append(reserved, reservation{productID: l.ProductID, quantity: l.Quantity})
		case errors.Is(err, domain.ErrInsufficientStock):
			short = append(short, l.ProductID)
		default:
			relErr := u.release(ctx, orderID, reserved)
			return nil, metrics.ResultError, errors.Join(fmt.Errorf("failed to reserve stock for %s: %w", l.ProductID, err), relErr)
		}
	}

	if len(short) > 0 {
		relErr := u.release(ctx, orderID, reserved)
		u.metrics.RecordReservationFailures(ctx, len(short))
		logger.OrderRejected(ctx, orderID, "insufficient_stock", short)
		stockErr := &domain.InsufficientStockError{ProductIDs: short}
		if relErr != nil {
			return nil, metrics.ResultError, errors.Join(stockErr, relErr)
		}
		return nil, metrics.ResultInsufficientStock, stockErr
	}

	// 2. Snapshot lines and persist
	order := &domain.Order{
		ID:             orderID,
		UserID:         in.UserID,
		Customer:       in.Customer,
		Status:         domain.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		ShippingMethod: in.ShippingMethod,
		Notes:          in.Notes,
		CreatedAt:      u.now(),
	}
	for _, l := range lines {
		p := byID[l.ProductID]
		item := domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
		}
		if p.SKU != nil {
			item.SKU = *p.SKU
		}
		order.Items = append(order.Items, item)
	}
	order.Total = domain.OrderTotal(order.Items)

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.CreateOrder(txCtx, order); err != nil {
			return err
		}
		reason := "Order placed"
		history := domain.OrderHistory{
			OrderID:   order.ID,
			NewStatus: domain.OrderStatusPending,
			Reason:    &reason,
			CreatedBy: in.UserID,
		}
		if err := u.orderRepo.CreateOrderHistory(txCtx, &history); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
		return nil
	})
	if err != nil {
		relErr := u.release(ctx, orderID, reserved)
		return nil, metrics.ResultError, errors.Join(&domain.PersistenceError{Op: "create order", Err: err}, relErr)
	}

	u.invalidateListings()
	logger.WithContext(ctx).Info().
		Str("order_id", order.ID).
		Int("lines", len(order.Items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("Order placed")
	return order, metrics.ResultSuccess, nil
}

// release hands reservations back. It ignores caller cancellation so a dropped request
// cannot strand stock.
func (u *OrderUsecase) release(ctx context.Context, orderID string, reserved []reservation) error {
	if len(reserved) == 0 {
		return nil
	}
	relCtx := context.WithoutCancel(ctx)
	var errs []error
	for _, r := range reserved {
		if err := u.ledger.Release(relCtx, r.productID, r.quantity, orderID); err != nil {
			logger.CompensationFailed(ctx, orderID, r.productID, r.quantity, err)
			errs = append(errs, fmt.Errorf("failed to release %d of %s: %w", r.quantity, r.productID, err))
		}
	}
	u.invalidateListings()
	if len(errs) > 0 {
		return &domain.PersistenceError{Op: "release reservations", Err: errors.Join(errs...)}
	}
	return nil
}

// validatePlacement checks the input and merges repeated products into one line,
// keeping first-seen order.
func (u *OrderUsecase) validatePlacement(in *PlaceOrderInput) ([]domain.CartItem, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", "order has no items")
	}

	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.Customer.Address = strings.TrimSpace(in.Customer.Address)
	if in.Customer.Name == "" {
		return nil, domain.NewValidationError("customer.name", "name is required")
	}
	if in.Customer.Email == "" && in.Customer.Phone == "" {
		return nil, domain.NewValidationError("customer", "an email or phone number is required")
	}

	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentMethodCOD
	}
	known := false
	for _, m := range domain.PaymentMethods {
		if in.PaymentMethod == m {
			known = true
			break
		}
	}
	if !known {
		return nil, domain.NewValidationError("paymentMethod", "unsupported payment method %q", in.PaymentMethod)
	}

	index := make(map[string]int, len(in.Items))
	var lines []domain.CartItem
	for i, it := range in.Items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].productId", i), "product id is required")
		}
		if it.Quantity <= 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be a positive integer")
		}
		if j, ok := index[id]; ok {
			lines[j].Quantity += it.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, domain.CartItem{ProductID: id, Quantity: it.Quantity})
	}

	maxQty := u.maxCartQuantity()
	for _, l := range lines {
		if l.Quantity > maxQty {
			return nil, domain.NewValidationError("items", "quantity for %s exceeds the limit of %d", l.ProductID, maxQty)
		}
	}
	return lines, nil
}

func (u *OrderUsecase) maxCartQuantity() int {
	if u.cfg == nil || u.cfg.MaxCartQuantity <= 0 {
		return 1000
	}
	return u.cfg.MaxCartQuantity
}

func (u *OrderUsecase) restockOnCancel() bool {
	return u.cfg != nil && u.cfg.RestockOnCancel
}

func (u *OrderUsecase) invalidateListings() {
	if u.listings != nil {
		u.listings.InvalidateListings()
	}
}

func (u *OrderUsecase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return u.orderRepo.GetByID(ctx, id)
}

func (u *OrderUsecase) GetOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := u.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// --- Admin Usecase ---

func (u *OrderUsecase) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError("status", "unknown status %q", filter.Status)
	}
	return u.orderRepo.GetAll(ctx, filter)
}

func (u *OrderUsecase) GetOrderHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	if _, err := u.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return u.orderRepo.GetOrderHistory(ctx, orderID)
}

// UpdateStatus moves an order along the state machine and records the change.
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, note, actorID string) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, domain.NewValidationError("status", "unknown status %q", newStatus)
	}

	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status
	if !oldStatus.CanTransitionTo(newStatus) {
		return nil, &domain.TransitionError{From: oldStatus, To: newStatus}
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.UpdateStatus(txCtx, orderID, oldStatus, newStatus); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w: order %s changed status concurrently", domain.ErrConflict, orderID)
			}
			return err
		}

		finalReason := strings.TrimSpace(note)
		if finalReason == "" {
			finalReason = fmt.Sprintf("System: Status changed from %s to %s", oldStatus, newStatus)
		}
		history := domain.OrderHistory{
			OrderID:        orderID,
			PreviousStatus: &oldStatus,
			NewStatus:      newStatus,
			Reason:         &finalReason,
		}
		if actorID != "" {
			history.CreatedBy = &actorID
		}
		if err := u.orderRepo.CreateOrderHistory(txCtx, &history); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}

		if newStatus == domain.OrderStatusCancelled && u.restockOnCancel() {
			for _, it := range order.Items {
				_, err := u.productRepo.Restock(txCtx, it.ProductID, it.Quantity, domain.InventoryReasonCancelled, orderID)
				if errors.Is(err, domain.ErrNotFound) {
					// Product deleted since the order was placed; nothing to return stock to.
					logger.WithContext(ctx).Warn().
						Str("order_id", orderID).
						Str("product_id", it.ProductID).
						Int("quantity", it.Quantity).
						Msg("Restock skipped for missing product")
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to restock %s: %w", it.ProductID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newStatus == domain.OrderStatusCancelled && u.restockOnCancel() {
		u.invalidateListings()
	}
	logger.WithContext(ctx).Info().
		Str("order_id", orderID).
		Str("from", string(oldStatus)).
		Str("to", string(newStatus)).
		Str("actor_id", actorID).
		Msg("Order status updated")

	order.Status = newStatus
	return order, nil
}
