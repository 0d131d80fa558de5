package port

import (
	"context"

	"github.com/nikolayk812/luxcore/internal/domain"
)

type CouponRepository interface {
	GetCoupon(ctx context.Context, code string) (domain.Coupon, error)
	IncrementUsage(ctx context.Context, code string) error
}
