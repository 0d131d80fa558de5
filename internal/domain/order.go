package domain

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID          uuid.UUID
	UserID      *uuid.UUID // nil for guest orders
	GuestEmail  string     // set iff UserID is nil
	OrderNumber string

	// IdempotencyKey dedupes repeated commits of the same cart. Optional.
	IdempotencyKey string

	Status        OrderStatus
	PaymentStatus PaymentStatus

	Subtotal       Money
	TaxAmount      Money
	ShippingAmount Money
	DiscountAmount Money
	TotalAmount    Money
	PointsUsed     int
	PointsEarned   int

	PaymentMethod   string
	ShippingAddress Address
	BillingAddress  Address

	// TrackingToken lets a guest retrieve the order without an account.
	// Empty for authenticated orders.
	TrackingToken string

	Items []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o Order) IsGuest() bool {
	return o.UserID == nil
}

// OrderItem captures price and product snapshots at order time,
// decoupled from later catalog changes.
type OrderItem struct {
	ProductID    uuid.UUID
	Quantity     int
	UnitPrice    Money
	LineTotal    Money
	ProductName  string
	ProductImage string
	VariantInfo  []byte
}

// OrderSummary is the list-view projection of an order.
type OrderSummary struct {
	ID            uuid.UUID
	OrderNumber   string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	TotalAmount   Money
	CreatedAt     time.Time
}
