package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stripe_order_bridge/internal/models"
)

var (
	// ErrOrderNotFound means no order matched the event-carried reference.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAmbiguousOrder means more than one order matched a lookup that must
	// identify exactly one. This is a consistency fault; callers must not
	// mutate anything.
	ErrAmbiguousOrder = errors.New("more than one order matched")
)

// OrderStore resolves and persists orders. Save runs the registered
// interceptors with the previously persisted snapshot before writing.
type OrderStore interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
}

// OrderInterceptor is invoked synchronously before an order update is
// committed, with both the incoming state and the state currently persisted.
type OrderInterceptor interface {
	BeforeOrderSave(ctx context.Context, prev, next *models.Order) error
}

// OrderService is the gorm-backed OrderStore.
type OrderService struct {
	db           *gorm.DB
	interceptors []OrderInterceptor
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// RegisterInterceptor appends a pre-save interceptor. Not safe for concurrent
// use; wire interceptors during startup.
func (s *OrderService) RegisterInterceptor(i OrderInterceptor) {
	s.interceptors = append(s.interceptors, i)
}

// FindByOrderID resolves an order by exact order identifier equality. A
// multi-row result is a consistency fault, never a silent pick.
func (s *OrderService) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Limit(2).Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("find order %q: %w", orderID, err)
	}
	return single(orders)
}

// FindByPaymentIntentID resolves the order whose stored paymentIntentId
// equals the given id. The jsonb key comparison is exact; one intent id being
// a substring of another can never cross-match.
func (s *OrderService) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	if paymentIntentID == "" {
		return nil, ErrOrderNotFound
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("custom_data ->> ? = ?", models.CustomDataPaymentIntentID, paymentIntentID).
		Limit(2).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("find order by payment intent %q: %w", paymentIntentID, err)
	}
	return single(orders)
}

func single(orders []models.Order) (*models.Order, error) {
	switch len(orders) {
	case 0:
		return nil, ErrOrderNotFound
	case 1:
		return &orders[0], nil
	default:
		return nil, ErrAmbiguousOrder
	}
}

// Save persists the order, running interceptors against the prior persisted
// snapshot first. New orders have no prior snapshot and skip interception.
func (s *OrderService) Save(ctx context.Context, order *models.Order) error {
	if order.ID != 0 {
		var prev models.Order
		err := s.db.WithContext(ctx).First(&prev, order.ID).Error
		switch {
		case err == nil:
			for _, interceptor := range s.interceptors {
				if err := interceptor.BeforeOrderSave(ctx, &prev, order); err != nil {
					return fmt.Errorf("order interceptor: %w", err)
				}
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load prior order %d: %w", order.ID, err)
		}
	}
	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("save order %q: %w", order.OrderID, err)
	}
	return nil
}
