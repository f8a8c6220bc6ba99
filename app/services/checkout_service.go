package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/crypt"
	"github.com/artisanmart/storefront/pkg/metrics"
	"github.com/artisanmart/storefront/pkg/orm"
)

// CheckoutItem is one line as the client saw it in the cart.
type CheckoutItem struct {
	ProductID uint            `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required,max=255"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"required,gte=1,lte=100"`
}

// CheckoutRequest carries the gateway's payment proof and the cart being
// paid for.
type CheckoutRequest struct {
	PaymentOrderID  string          `json:"orderId" validate:"required,max=100"`
	PaymentID       string          `json:"paymentId" validate:"required,max=100"`
	Signature       string          `json:"signature" validate:"required,max=128"`
	Items           []CheckoutItem  `json:"items" validate:"required,min=1,max=50,dive"`
	Amount          decimal.Decimal `json:"amount"`
	ShippingAddress models.Address  `json:"shippingAddress"`
}

type CheckoutConfig struct {
	PaymentSecret   string
	AmountTolerance decimal.Decimal
}

// CheckoutService turns a verified payment into an order, reserving stock
// with conditional decrements inside one transaction.
type CheckoutService struct {
	db        *gorm.DB
	products  *repositories.ProductRepository
	orders    *repositories.OrderRepository
	carts     *repositories.CartRepository
	events    Dispatcher
	secret    string
	tolerance decimal.Decimal
	now       func() time.Time
}

func NewCheckoutService(db *gorm.DB, events Dispatcher, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		db:        db,
		products:  repositories.NewProductRepository(db),
		orders:    repositories.NewOrderRepository(db),
		carts:     repositories.NewCartRepository(db),
		events:    orNop(events),
		secret:    cfg.PaymentSecret,
		tolerance: cfg.AmountTolerance,
		now:       time.Now,
	}
}

// wholeCents reports whether d has no digits below the cent.
func wholeCents(d decimal.Decimal) bool { return d.Equal(d.Round(2)) }

// OrderTotal sums price times quantity over items, rounded to cents. For
// items priced in whole cents the rounding is exact, so the total equals
// the sum of the stored line totals.
func OrderTotal(items []CheckoutItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}

// NewOrderReference returns ORD-<yyyymmdd>-<8 hex chars>.
func NewOrderReference(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id[:8]))
}

// Place verifies the payment, reserves stock for every item and stores the
// order. Nothing is written unless every item could be reserved.
func (s *CheckoutService) Place(ctx context.Context, userID uint, req CheckoutRequest) (models.Order, error) {
	const op = "checkout.place"

	if len(req.Items) == 0 {
		return models.Order{}, s.reject("invalid", apperr.Validation(op, "Order has no items", ErrEmptyOrder))
	}
	if !crypt.Verify(s.secret, req.Signature, req.PaymentOrderID, req.PaymentID) {
		return models.Order{}, s.reject("invalid_signature", apperr.Validation(op, "Payment verification failed", ErrInvalidSignature))
	}
	for _, it := range req.Items {
		if it.Price.IsNegative() || it.Quantity < 1 {
			return models.Order{}, s.reject("invalid", apperr.Validation(op, "Invalid item "+it.Name, nil))
		}
		if !wholeCents(it.Price) {
			return models.Order{}, s.reject("invalid", apperr.Validation(op,
				"Price of "+it.Name+" must have at most 2 decimal places", ErrSubCentPrice))
		}
	}

	total := OrderTotal(req.Items)
	if total.Sub(req.Amount).Abs().GreaterThan(s.tolerance) {
		return models.Order{}, s.reject("amount_mismatch", apperr.Validation(op,
			fmt.Sprintf("Amount mismatch: expected %s, got %s", total.StringFixed(2), req.Amount.StringFixed(2)),
			ErrAmountMismatch))
	}

	now := s.now()
	order := models.Order{
		UserID:          userID,
		Reference:       NewOrderReference(now),
		Items:           snapshot(req.Items),
		PaymentOrderID:  req.PaymentOrderID,
		PaymentID:       req.PaymentID,
		PaymentSig:      req.Signature,
		ShippingAddress: req.ShippingAddress,
		AmountPaid:      total,
		Status:          models.OrderProcessing,
		IsPaid:          true,
		PaidAt:          &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reserve(ctx, s.products.WithTx(tx), req.Items); err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).Create(ctx, &order); err != nil {
			if orm.IsDuplicate(err) {
				return apperr.Conflict(op, "Payment already processed", ErrDuplicatePayment)
			}
			return err
		}
		return s.carts.WithTx(tx).Clear(ctx, userID)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal(op, err)
		}
		return models.Order{}, s.reject(outcome(err), err)
	}

	metrics.CheckoutOutcomes.WithLabelValues("placed").Inc()
	s.events.FireAsync(EventOrderPlaced, OrderPlaced{Order: order})
	return order, nil
}

type reservation struct {
	productID uint
	name      string
	qty       int
}

// reserve decrements stock per product in id order so concurrent
// checkouts take row locks in the same sequence.
func (s *CheckoutService) reserve(ctx context.Context, products *repositories.ProductRepository, items []CheckoutItem) error {
	const op = "checkout.reserve"

	byID := map[uint]*reservation{}
	for _, it := range items {
		r, ok := byID[it.ProductID]
		if !ok {
			r = &reservation{productID: it.ProductID, name: it.Name}
			byID[it.ProductID] = r
		}
		r.qty += it.Quantity
	}
	list := make([]*reservation, 0, len(byID))
	for _, r := range byID {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].productID < list[j].productID })

	for _, r := range list {
		ok, err := products.Decrement(ctx, r.productID, r.qty)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		exists, err := products.Exists(ctx, r.productID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound(op, fmt.Sprintf("Product %s not found", r.name), ErrProductNotFound)
		}
		stockErr := &InsufficientStockError{ProductID: r.productID, Product: r.name, Requested: r.qty}
		return apperr.Conflict(op, "Insufficient stock for "+r.name, stockErr)
	}
	return nil
}

func (s *CheckoutService) reject(outcome string, err error) error {
	metrics.CheckoutOutcomes.WithLabelValues(outcome).Inc()
	return err
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrDuplicatePayment):
		return "duplicate_payment"
	default:
		return "error"
	}
}

func snapshot(items []CheckoutItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, it := range items {
		out[i] = models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.Round(2),
			Quantity:  it.Quantity,
		}
	}
	return out
}
