package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
)

// StockReservation is a claim of quantity units of a single product.
type StockReservation struct {
	ProductID uuid.UUID
	Quantity  int
}

type CatalogRepository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]domain.Product, error)

	// ReserveStock decrements stock for every reservation, all-or-nothing.
	// Each decrement is a single conditional update, never a read-then-write.
	// On success returns the pre-reservation stock per product.
	ReserveStock(ctx context.Context, reservations []StockReservation) (map[uuid.UUID]int, error)

	// ReleaseStock adds the reserved quantities back. Increments are
	// commutative, so release order does not matter.
	ReleaseStock(ctx context.Context, reservations []StockReservation) error

	// AdjustStock is the explicit admin mutation path, delta may be negative.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error)
}
