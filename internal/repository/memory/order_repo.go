package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
)

type orderRepository struct {
	s *Store
}

func NewOrderRepository(s *Store) domain.OrderRepository {
	return &orderRepository{s: s}
}

func (r *orderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := r.s.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	now := r.s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.NewString()
		}
		order.Items[i].OrderID = order.ID
	}
	r.s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *orderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r *orderRepository) GetByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	orders, _ := r.list(domain.OrderFilter{UserID: userID})
	return orders, nil
}

func (r *orderRepository) GetAll(_ context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	orders, total := r.list(filter)
	return orders, total, nil
}

func (r *orderRepository) list(filter domain.OrderFilter) ([]domain.Order, int64) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := []domain.Order{}
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && (o.UserID == nil || *o.UserID != filter.UserID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.ID), search) &&
			!strings.Contains(strings.ToLower(o.Customer.Name), search) &&
			!strings.Contains(strings.ToLower(o.Customer.Email), search) &&
			!strings.Contains(o.Customer.Phone, search) {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	total := int64(len(result))
	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		start, end := paginate(len(result), filter.Limit, (page-1)*filter.Limit)
		result = result[start:end]
	}
	return result, total
}

func (r *orderRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return domain.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r *orderRepository) ApplyDiscount(_ context.Context, id, couponCode string, discount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.CouponCode = couponCode
	o.Discount = discount
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r *orderRepository) CreateOrderHistory(_ context.Context, history *domain.OrderHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = r.s.now()
	}
	r.s.history[history.OrderID] = append(r.s.history[history.OrderID], *history)
	return nil
}

func (r *orderRepository) GetOrderHistory(_ context.Context, orderID string) ([]domain.OrderHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]domain.OrderHistory{}, r.s.history[orderID]...), nil
}
