package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Business-rule errors surfaced by the checkout pipeline. All of them are
// recoverable by the caller adjusting input and retrying; anything else
// wrapping out of the pipeline is treated as an internal error.
var (
	ErrEmptyCart          = errors.New("cart has no items")
	ErrGuestEmailRequired = errors.New("guest email is required for guest orders")
	ErrInvalidCoupon      = errors.New("coupon is invalid or not applicable")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
)

// ValidationError marks malformed input rejected before any side effect.
type ValidationError struct {
	Err error
}

func (e ValidationError) Error() string {
	return e.Err.Error()
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type ProductUnavailableError struct {
	ProductID uuid.UUID
	Status    ProductStatus
}

func (e ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available: status %s", e.ProductID, e.Status)
}

type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// IsBusinessError reports whether err belongs to the checkout taxonomy,
// i.e. is safe to expose to the caller with a 4xx status.
func IsBusinessError(err error) bool {
	var (
		validation  ValidationError
		notFound    ProductNotFoundError
		unavailable ProductUnavailableError
		outOfStock  InsufficientStockError
	)

	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrGuestEmailRequired),
		errors.Is(err, ErrInvalidCoupon),
		errors.Is(err, ErrInsufficientPoints),
		errors.As(err, &validation),
		errors.As(err, &notFound),
		errors.As(err, &unavailable),
		errors.As(err, &outOfStock):
		return true
	}

	return false
}
