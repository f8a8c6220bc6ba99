package services

import "github.com/artisanmart/storefront/app/models"

// Event names fired on the bus.
const (
	EventOrderPlaced      = "order.placed"
	EventOrderStatus      = "order.status"
	EventStockChanged     = "product.stock_changed"
	EventProductRestocked = "product.restocked"
)

// Dispatcher hands events to background listeners. event.Bus implements it.
type Dispatcher interface {
	FireAsync(event string, payload any)
}

type nopDispatcher struct{}

func (nopDispatcher) FireAsync(string, any) {}

func orNop(d Dispatcher) Dispatcher {
	if d == nil {
		return nopDispatcher{}
	}
	return d
}

// OrderPlaced is fired once an order is committed.
type OrderPlaced struct {
	Order models.Order
}

// OrderStatusChanged is fired after an admin moves an order.
type OrderStatusChanged struct {
	OrderID   uint
	UserID    uint
	Reference string
	From      models.OrderStatus
	To        models.OrderStatus
}

// StockChanged is fired whenever a write outside checkout moves stock.
type StockChanged struct {
	ProductID uint
	Name      string
	Before    int
	After     int
}

// Restocked reports whether the change took the product from sold out to
// available.
func (c StockChanged) Restocked() bool { return c.Before <= 0 && c.After > 0 }

// fireStock fires the stock change and, when it applies, the restock event.
func fireStock(d Dispatcher, c StockChanged) {
	if c.Before == c.After {
		return
	}
	d.FireAsync(EventStockChanged, c)
	if c.Restocked() {
		d.FireAsync(EventProductRestocked, c)
	}
}
