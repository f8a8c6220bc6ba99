package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/orm"
)

type StatusInput struct {
	Status models.OrderStatus `json:"status" validate:"required,in=Pending|Processing|Shipped|Delivered|Cancelled"`
}

// OrderService serves buyers their orders and lets admins move them
// through their lifecycle.
type OrderService struct {
	db       *gorm.DB
	orders   *repositories.OrderRepository
	products *repositories.ProductRepository
	events   Dispatcher
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, events Dispatcher) *OrderService {
	return &OrderService{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		products: repositories.NewProductRepository(db),
		events:   orNop(events),
		now:      time.Now,
	}
}

func (s *OrderService) ListForUser(ctx context.Context, userID uint, p orm.Page) ([]models.Order, int64, error) {
	orders, total, err := s.orders.ListForUser(ctx, userID, p)
	if err != nil {
		return nil, 0, apperr.Internal("orders.list", err)
	}
	return nonNil(orders), total, nil
}

// ShowForUser hides other buyers' orders behind a not-found.
func (s *OrderService) ShowForUser(ctx context.Context, id, userID uint) (models.Order, error) {
	o, err := s.orders.FindForUser(ctx, id, userID)
	if orm.IsNotFound(err) {
		return models.Order{}, apperr.NotFound("orders.show", "Order not found", ErrOrderNotFound)
	}
	if err != nil {
		return models.Order{}, apperr.Internal("orders.show", err)
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, status models.OrderStatus, p orm.Page) ([]models.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.Validation("orders.admin.list", "Unknown order status", nil)
	}
	orders, total, err := s.orders.List(ctx, status, p)
	if err != nil {
		return nil, 0, apperr.Internal("orders.admin.list", err)
	}
	return nonNil(orders), total, nil
}

// UpdateStatus moves an order to next. Delivered and cancelled orders are
// final. Cancelling returns the items to stock in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, next models.OrderStatus) (models.Order, error) {
	const op = "orders.status"

	if !next.Valid() {
		return models.Order{}, apperr.Validation(op, "Unknown order status", nil)
	}

	var (
		order   models.Order
		changes []StockChanged
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		var err error
		if order, err = orders.Find(ctx, id); err != nil {
			if orm.IsNotFound(err) {
				return apperr.NotFound(op, "Order not found", ErrOrderNotFound)
			}
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return apperr.Conflict(op, "Cannot change a "+string(order.Status)+" order to "+string(next), ErrInvalidTransition)
		}

		now := s.now()
		ok, err := orders.UpdateStatus(ctx, id, order.Status, next, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict(op, "Order was updated by someone else, reload and retry", ErrStatusChanged)
		}
		if next == models.OrderDelivered {
			order.DeliveredAt = &now
		}
		if next == models.OrderCancelled {
			if changes, err = s.restock(ctx, s.products.WithTx(tx), order.Items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal(op, err)
		}
		return models.Order{}, err
	}

	from := order.Status
	order.Status = next
	s.events.FireAsync(EventOrderStatus, OrderStatusChanged{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Reference: order.Reference,
		From:      from,
		To:        next,
	})
	for _, c := range changes {
		fireStock(s.events, c)
	}
	return order, nil
}

func (s *OrderService) restock(ctx context.Context, products *repositories.ProductRepository, items []models.OrderItem) ([]StockChanged, error) {
	qty := map[uint]int{}
	names := map[uint]string{}
	var ids []uint
	for _, it := range items {
		if _, seen := qty[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
		names[it.ProductID] = it.Name
	}

	changes := make([]StockChanged, 0, len(ids))
	for _, id := range ids {
		before, err := products.Stock(ctx, id)
		if orm.IsNotFound(err) {
			// Deleted from the catalog since the order was placed.
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := products.Increment(ctx, id, qty[id]); err != nil {
			return nil, err
		}
		changes = append(changes, StockChanged{ProductID: id, Name: names[id], Before: before, After: before + qty[id]})
	}
	return changes, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
