package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoyaltyTier string

const (
	LoyaltyTierBronze   LoyaltyTier = "bronze"
	LoyaltyTierSilver   LoyaltyTier = "silver"
	LoyaltyTierGold     LoyaltyTier = "gold"
	LoyaltyTierPlatinum LoyaltyTier = "platinum"
)

const (
	// PointsPerDollar is earned on every purchase.
	PointsPerDollar = 10
	// PointsPerDollarRedeemed: 100 points buy one dollar of discount.
	PointsPerDollarRedeemed = 100

	tierSilverThreshold   = 1000
	tierGoldThreshold     = 5000
	tierPlatinumThreshold = 15000
)

type LoyaltyAccount struct {
	UserID     uuid.UUID
	Points     int
	Tier       LoyaltyTier
	TotalSpent decimal.Decimal
}

// TierForPoints maps a lifetime points balance to a tier.
func TierForPoints(points int) LoyaltyTier {
	switch {
	case points >= tierPlatinumThreshold:
		return LoyaltyTierPlatinum
	case points >= tierGoldThreshold:
		return LoyaltyTierGold
	case points >= tierSilverThreshold:
		return LoyaltyTierSilver
	}

	return LoyaltyTierBronze
}

// PointsDiscount converts redeemed points to a monetary discount.
func PointsDiscount(points int) decimal.Decimal {
	return decimal.NewFromInt(int64(points)).
		Div(decimal.NewFromInt(PointsPerDollarRedeemed)).
		Round(2)
}

// PointsEarned is the loyalty credit for a completed order total.
func PointsEarned(total decimal.Decimal) int {
	return int(total.Mul(decimal.NewFromInt(PointsPerDollar)).IntPart())
}
