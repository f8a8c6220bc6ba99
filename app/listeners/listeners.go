// Package listeners wires the side effects of domain events. They run on
// the event bus worker pool after the triggering transaction committed.
package listeners

import (
	"context"
	"fmt"

	"github.com/artisanmart/storefront/app/mails"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/event"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/metrics"
	"github.com/artisanmart/storefront/pkg/ws"
)

// Deps are the collaborators the listeners call.
type Deps struct {
	Users    *repositories.UserRepository
	Mailer   mail.Mailer
	Sessions *ws.Registry
	LowStock *services.LowStockService
	Restock  *services.RestockService
}

// Register subscribes every listener on bus.
func Register(bus *event.Bus, d Deps) {
	bus.Listen(services.EventOrderPlaced, "receipt.mail", d.sendReceipt)
	bus.Listen(services.EventOrderPlaced, "order.push", d.pushPlaced)
	bus.Listen(services.EventOrderPlaced, "lowstock.evaluate", d.evaluateOrder)
	bus.Listen(services.EventOrderPlaced, "metrics.revenue", recordRevenue)
	bus.Listen(services.EventOrderStatus, "order.push", d.pushStatus)
	bus.Listen(services.EventStockChanged, "lowstock.evaluate", d.evaluateStock)
	bus.Listen(services.EventProductRestocked, "restock.notify", d.notifyRestocked)
}

func (d Deps) sendReceipt(ctx context.Context, payload any) error {
	placed, ok := payload.(services.OrderPlaced)
	if !ok {
		return unexpected(payload)
	}
	user, err := d.Users.FindByID(ctx, placed.Order.UserID)
	if err != nil {
		return fmt.Errorf("load buyer: %w", err)
	}
	msg, err := mails.Receipt(placed.Order, user)
	if err != nil {
		return err
	}
	return d.Mailer.Send(ctx, msg)
}

func (d Deps) pushPlaced(ctx context.Context, payload any) error {
	placed, ok := payload.(services.OrderPlaced)
	if !ok {
		return unexpected(payload)
	}
	return d.push(ctx, placed.Order.UserID, "order.placed", placed.Order)
}

func (d Deps) pushStatus(ctx context.Context, payload any) error {
	change, ok := payload.(services.OrderStatusChanged)
	if !ok {
		return unexpected(payload)
	}
	return d.push(ctx, change.UserID, "order.status", change)
}

func (d Deps) push(ctx context.Context, userID uint, name string, data any) error {
	if d.Sessions == nil {
		return nil
	}
	n, err := d.Sessions.SendTo(userID, name, data)
	if err != nil {
		return err
	}
	logger.WithCtx(ctx).Debug("listeners: pushed", "event", name, "user_id", userID, "sessions", n)
	return nil
}

func (d Deps) evaluateOrder(ctx context.Context, payload any) error {
	placed, ok := payload.(services.OrderPlaced)
	if !ok {
		return unexpected(payload)
	}
	seen := map[uint]bool{}
	for _, it := range placed.Order.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		if _, err := d.LowStock.Evaluate(ctx, it.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (d Deps) evaluateStock(ctx context.Context, payload any) error {
	change, ok := payload.(services.StockChanged)
	if !ok {
		return unexpected(payload)
	}
	_, err := d.LowStock.Evaluate(ctx, change.ProductID)
	return err
}

func (d Deps) notifyRestocked(ctx context.Context, payload any) error {
	change, ok := payload.(services.StockChanged)
	if !ok {
		return unexpected(payload)
	}
	_, err := d.Restock.NotifyRestocked(ctx, change.ProductID)
	return err
}

func recordRevenue(_ context.Context, payload any) error {
	placed, ok := payload.(services.OrderPlaced)
	if !ok {
		return unexpected(payload)
	}
	amount, _ := placed.Order.AmountPaid.Float64()
	metrics.OrderRevenue.Add(amount)
	return nil
}

func unexpected(payload any) error {
	return fmt.Errorf("listeners: unexpected payload %T", payload)
}
