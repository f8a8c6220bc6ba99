// Package services holds the storefront use cases. Services take their
// collaborators explicitly and return errors classified with apperr.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	ErrProductNotFound = errors.New("product not found")
	ErrAlreadyReviewed = errors.New("product already reviewed")

	ErrCartTooLarge  = errors.New("too many items in cart")
	ErrCartItemStock = errors.New("requested quantity exceeds stock")

	ErrAlreadyWishlisted = errors.New("product already in wishlist")
	ErrNotWishlisted     = errors.New("product not in wishlist")

	ErrInvalidSignature  = errors.New("payment signature mismatch")
	ErrAmountMismatch    = errors.New("declared amount does not match items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicatePayment  = errors.New("payment already used for an order")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrSubCentPrice      = errors.New("item price below cent precision")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrStatusChanged     = errors.New("order status changed concurrently")

	ErrAlreadySubscribed = errors.New("already subscribed to restock notification")

	ErrScheduleNotFound = errors.New("scheduled export not found")
	ErrRunNotFound      = errors.New("export run not found")
	ErrRunNotRetryable  = errors.New("only failed runs can be retried")
	ErrInvalidCron      = errors.New("invalid cron expression")
	ErrScheduleInactive = errors.New("scheduled export is inactive")
)

// InsufficientStockError names the product that could not be reserved.
type InsufficientStockError struct {
	ProductID uint
	Product   string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Product)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
