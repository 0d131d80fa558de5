package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
)

type CheckoutInput struct {
	// UserID is nil for guest checkouts, then GuestEmail is required.
	UserID     *uuid.UUID
	GuestEmail string

	Cart            domain.Cart
	ShippingAddress domain.Address
	// BillingAddress falls back to the shipping address when nil.
	BillingAddress *domain.Address
	PaymentMethod  string

	CouponCode   string
	RedeemPoints int

	// IdempotencyKey, when set, makes a repeated commit return the
	// already-created order instead of running again.
	IdempotencyKey string
}

type CheckoutResult struct {
	Order domain.Order
	// Replayed is true when the result was served from a previous commit
	// with the same idempotency key.
	Replayed bool
}

type CheckoutService interface {
	Checkout(ctx context.Context, input CheckoutInput) (CheckoutResult, error)

	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (domain.Order, error)
	TrackOrder(ctx context.Context, token string) (domain.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error)
}
