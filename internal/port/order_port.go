package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
)

type OrderRepository interface {
	// InsertOrder persists the order and its items atomically. It assigns
	// the order ID and a unique order number, retrying number generation
	// on a uniqueness conflict.
	InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrderByTrackingToken(ctx context.Context, token string) (domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (domain.Order, error)

	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error)

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error

	// MarkPaid is the hook for an out-of-scope payment webhook.
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
}
