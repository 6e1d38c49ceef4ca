package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// Order Statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Payment Methods
const (
	PaymentMethodCOD  = "cod"
	PaymentMethodCard = "card"
	PaymentMethodBank = "bank_transfer"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var PaymentMethods = []string{
	PaymentMethodCOD,
	PaymentMethodCard,
	PaymentMethodBank,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// Delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CartItem is the client-held request line. Never persisted.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type OrderFilter struct {
	Page   int
	Limit  int
	Status OrderStatus
	UserID string
	Search string
}

// --- Order Entities ---

type Order struct {
	ID             string          `json:"id"`
	UserID         *string         `json:"userId"`
	Customer       CustomerInfo    `json:"customer"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Discount       decimal.Decimal `json:"discount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	ShippingMethod string          `json:"shippingMethod"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// AmountDue is what the customer pays after any coupon discount.
func (o Order) AmountDue() decimal.Decimal {
	due := o.Total.Sub(o.Discount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// OrderItem snapshots the product at placement time. Later catalog edits never touch it.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums the line totals.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

type OrderHistory struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"orderId"`
	PreviousStatus *OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus  `json:"newStatus"`
	Reason         *string      `json:"reason"`
	CreatedBy      *string      `json:"createdBy"` // UserID
	CreatedAt      time.Time    `json:"createdAt"`
}

// --- Interfaces ---

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// UpdateStatus is a compare-and-set: it fails with ErrConflict when the stored
	// status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) error
	ApplyDiscount(ctx context.Context, id, couponCode string, discount decimal.Decimal) error

	CreateOrderHistory(ctx context.Context, history *OrderHistory) error
	GetOrderHistory(ctx context.Context, orderID string) ([]OrderHistory, error)
}

// OrderEventPublisher announces order lifecycle events to other systems.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *Order) error
}
