package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

// remember to add new statuses to the validProductStatuses map
const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

var validProductStatuses = map[ProductStatus]struct{}{
	ProductStatusActive:   {},
	ProductStatusDraft:    {},
	ProductStatusArchived: {},
}

func ToProductStatus(s string) (ProductStatus, error) {
	status := ProductStatus(s)
	if _, ok := validProductStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid product status")
}

type Product struct {
	ID     uuid.UUID
	Name   string
	Price  Money
	Image  string
	Stock  int
	Status ProductStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Purchasable reports whether the product may appear in a new order.
// Stock is not part of this check, reservation decides that atomically.
func (p Product) Purchasable() bool {
	return p.Status == ProductStatusActive
}
