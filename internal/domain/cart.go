package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CartLine is a client-supplied line item. It is never persisted,
// only orders created from it are.
type CartLine struct {
	ProductID   uuid.UUID
	Quantity    int
	VariantInfo []byte // opaque to pricing, stored on the order item as-is
}

type Cart struct {
	Lines []CartLine
}

func (c Cart) Validate() error {
	if len(c.Lines) == 0 {
		return ErrEmptyCart
	}

	for i, line := range c.Lines {
		if line.ProductID == uuid.Nil {
			return ValidationError{Err: fmt.Errorf("line[%d]: product id is empty", i)}
		}
		if line.Quantity < 1 {
			return ValidationError{Err: fmt.Errorf("line[%d]: quantity must be positive", i)}
		}
	}

	return nil
}

var errDuplicateProduct = errors.New("duplicate product in cart")

// Dedup verifies each product appears in at most one line.
func (c Cart) Dedup() error {
	seen := make(map[uuid.UUID]struct{}, len(c.Lines))
	for _, line := range c.Lines {
		if _, ok := seen[line.ProductID]; ok {
			return ValidationError{Err: fmt.Errorf("%w: %s", errDuplicateProduct, line.ProductID)}
		}
		seen[line.ProductID] = struct{}{}
	}

	return nil
}
