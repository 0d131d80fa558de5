package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// PricingConfig carries the storefront's pricing rules. The defaults mirror
// production: 8% tax, free shipping at and above 500.00, 25.00 flat fee.
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	Currency              currency.Unit
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.NewFromInt(25),
		Currency:              currency.USD,
	}
}

// Quote is the authoritative totals for a candidate order.
// total = subtotal + tax + shipping - discount, floored at zero.
type Quote struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	CouponDiscount decimal.Decimal
	PointsDiscount decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal

	PointsUsed   int
	PointsEarned int

	Lines []QuoteLine
}

// QuoteLine is a cart line with unit price and product snapshot captured at
// quote time, ready to become an order item.
type QuoteLine struct {
	ProductID    uuid.UUID
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	ProductName  string
	ProductImage string
	VariantInfo  []byte
}

// PricingEngine is a pure computation over read snapshots: it never touches
// storage and has no side effects.
type PricingEngine struct {
	cfg PricingConfig
}

func NewPricingEngine(cfg PricingConfig) PricingEngine {
	return PricingEngine{cfg: cfg}
}

// Quote prices the cart against the given catalog, coupon and loyalty
// snapshots. Monetary math is fixed-point decimal throughout.
func (e PricingEngine) Quote(cart domain.Cart, products map[uuid.UUID]domain.Product,
	coupon *domain.Coupon, redeemPoints, pointsBalance int, now time.Time) (Quote, error) {

	var q Quote

	if err := cart.Validate(); err != nil {
		return q, err
	}

	subtotal := decimal.Zero
	lines := make([]QuoteLine, 0, len(cart.Lines))

	for _, line := range cart.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			return q, domain.ProductNotFoundError{ProductID: line.ProductID}
		}

		if !product.Purchasable() {
			return q, domain.ProductUnavailableError{ProductID: product.ID, Status: product.Status}
		}

		lineTotal := product.Price.Amount.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		lines = append(lines, QuoteLine{
			ProductID:    product.ID,
			Quantity:     line.Quantity,
			UnitPrice:    product.Price.Amount,
			LineTotal:    lineTotal,
			ProductName:  product.Name,
			ProductImage: product.Image,
			VariantInfo:  line.VariantInfo,
		})
	}

	tax := subtotal.Mul(e.cfg.TaxRate).Round(2)

	shipping := e.cfg.ShippingFee
	if subtotal.GreaterThanOrEqual(e.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	couponDiscount := decimal.Zero
	if coupon != nil {
		if !coupon.Usable(subtotal, now) {
			return q, fmt.Errorf("coupon[%s]: %w", coupon.Code, domain.ErrInvalidCoupon)
		}
		couponDiscount = coupon.Discount(subtotal)
	}

	pointsDiscount := decimal.Zero
	if redeemPoints > 0 {
		if redeemPoints > pointsBalance {
			return q, domain.ErrInsufficientPoints
		}
		pointsDiscount = domain.PointsDiscount(redeemPoints)
	}

	// the two discounts stack, each computed independently from the subtotal
	discount := couponDiscount.Add(pointsDiscount)

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:       subtotal,
		Tax:            tax,
		Shipping:       shipping,
		CouponDiscount: couponDiscount,
		PointsDiscount: pointsDiscount,
		Discount:       discount,
		Total:          total,
		PointsUsed:     redeemPoints,
		PointsEarned:   domain.PointsEarned(total),
		Lines:          lines,
	}, nil
}
