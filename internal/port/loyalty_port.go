package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/shopspring/decimal"
)

type LoyaltyRepository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (domain.LoyaltyAccount, error)

	// RedeemPoints decrements the balance with a conditional update, so a
	// concurrent redemption cannot drive the balance negative.
	RedeemPoints(ctx context.Context, userID uuid.UUID, points int) error

	// AddPoints credits earned points and lifetime spend, recalculating the tier.
	AddPoints(ctx context.Context, userID uuid.UUID, points int, spent decimal.Decimal) error
}
