package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
)

var ErrCouponNotFound = errors.New("coupon not found")

type couponRepository struct {
	db DB
}

func NewCoupon(pool *pgxpool.Pool) port.CouponRepository {
	return &couponRepository{db: pool}
}

func NewCouponWithTx(tx pgx.Tx) port.CouponRepository {
	return &couponRepository{db: tx}
}

func (r *couponRepository) GetCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	var c domain.Coupon

	if code == "" {
		return c, errors.New("code is empty")
	}

	var couponType string

	err := r.db.QueryRow(ctx,
		`SELECT id, code, type, value, minimum_amount, usage_limit, used_count, starts_at, expires_at, is_active
		 FROM coupons WHERE code = $1`, code).
		Scan(&c.ID, &c.Code, &couponType, &c.Value, &c.MinimumAmount, &c.UsageLimit, &c.UsedCount,
			&c.StartsAt, &c.ExpiresAt, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, ErrCouponNotFound
		}
		return c, fmt.Errorf("select coupon: %w", err)
	}

	if c.Type, err = domain.ToCouponType(couponType); err != nil {
		return c, fmt.Errorf("domain.ToCouponType[%s]: %w", couponType, err)
	}

	return c, nil
}

// IncrementUsage counts a redemption, respecting the usage limit with a
// conditional update so concurrent checkouts cannot exceed it.
func (r *couponRepository) IncrementUsage(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("code is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE code = $1 AND is_active AND (usage_limit IS NULL OR used_count < usage_limit)`,
		code)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("increment usage[%s]: %w", code, domain.ErrInvalidCoupon)
	}

	return nil
}
