package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

func ToCouponType(s string) (CouponType, error) {
	switch CouponType(s) {
	case CouponTypePercentage:
		return CouponTypePercentage, nil
	case CouponTypeFixed:
		return CouponTypeFixed, nil
	}

	return "", errors.New("invalid coupon type")
}

type Coupon struct {
	ID            uuid.UUID
	Code          string
	Type          CouponType
	Value         decimal.Decimal
	MinimumAmount decimal.Decimal
	UsageLimit    *int
	UsedCount     int
	StartsAt      *time.Time
	ExpiresAt     *time.Time
	Active        bool
}

// Usable reports whether the coupon can be applied to a purchase of the
// given subtotal at the given moment.
func (c Coupon) Usable(subtotal decimal.Decimal, now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}

	return subtotal.GreaterThanOrEqual(c.MinimumAmount)
}

// Discount computes the coupon's discount for the subtotal.
// Percentage coupons take value% of the subtotal, fixed coupons are capped
// at the subtotal so a discount never exceeds what is being discounted.
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case CouponTypePercentage:
		return subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	case CouponTypeFixed:
		return decimal.Min(c.Value, subtotal)
	}

	return decimal.Zero
}
