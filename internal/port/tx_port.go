package port

import "context"

// TxStores bundles the repositories bound to a single transaction.
type TxStores struct {
	Orders  OrderRepository
	Coupons CouponRepository
	Loyalty LoyaltyRepository
	Events  EventWriter
}

// TxRunner runs fn inside one database transaction; every store it hands
// out shares that transaction, so the whole fn commits or rolls back as one.
type TxRunner interface {
	InTx(ctx context.Context, fn func(stores TxStores) error) error
}
