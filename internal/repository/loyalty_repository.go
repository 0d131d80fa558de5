package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/shopspring/decimal"
)

var ErrUserNotFound = errors.New("user not found")

type loyaltyRepository struct {
	db DB
}

func NewLoyalty(pool *pgxpool.Pool) port.LoyaltyRepository {
	return &loyaltyRepository{db: pool}
}

func NewLoyaltyWithTx(tx pgx.Tx) port.LoyaltyRepository {
	return &loyaltyRepository{db: tx}
}

func (r *loyaltyRepository) GetAccount(ctx context.Context, userID uuid.UUID) (domain.LoyaltyAccount, error) {
	var a domain.LoyaltyAccount

	if userID == uuid.Nil {
		return a, errors.New("userID is empty")
	}

	var tier string

	err := r.db.QueryRow(ctx,
		`SELECT id, loyalty_points, loyalty_tier, total_spent FROM users WHERE id = $1`, userID).
		Scan(&a.UserID, &a.Points, &tier, &a.TotalSpent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, ErrUserNotFound
		}
		return a, fmt.Errorf("select user: %w", err)
	}

	a.Tier = domain.LoyaltyTier(tier)

	return a, nil
}

// RedeemPoints spends points with a conditional decrement, mirroring the
// stock reservation guard: the balance check and the write are one statement.
func (r *loyaltyRepository) RedeemPoints(ctx context.Context, userID uuid.UUID, points int) error {
	if userID == uuid.Nil {
		return errors.New("userID is empty")
	}
	if points <= 0 {
		return errors.New("points must be positive")
	}

	_, err := withTx(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		var balance int

		err := tx.QueryRow(ctx,
			`UPDATE users SET loyalty_points = loyalty_points - $2, updated_at = now()
			 WHERE id = $1 AND loyalty_points >= $2
			 RETURNING loyalty_points`,
			userID, points).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, r.redeemFailure(ctx, tx, userID)
			}
			return struct{}{}, fmt.Errorf("decrement points: %w", err)
		}

		return struct{}{}, updateTier(ctx, tx, userID, balance)
	})

	return err
}

func (r *loyaltyRepository) redeemFailure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var balance int

	err := tx.QueryRow(ctx, `SELECT loyalty_points FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("inspect user[%s]: %w", userID, err)
	}

	return domain.ErrInsufficientPoints
}

func (r *loyaltyRepository) AddPoints(ctx context.Context, userID uuid.UUID, points int, spent decimal.Decimal) error {
	if userID == uuid.Nil {
		return errors.New("userID is empty")
	}
	if points < 0 {
		return errors.New("points must not be negative")
	}

	_, err := withTx(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		var balance int

		err := tx.QueryRow(ctx,
			`UPDATE users SET loyalty_points = loyalty_points + $2, total_spent = total_spent + $3, updated_at = now()
			 WHERE id = $1
			 RETURNING loyalty_points`,
			userID, points, spent).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, ErrUserNotFound
			}
			return struct{}{}, fmt.Errorf("increment points: %w", err)
		}

		return struct{}{}, updateTier(ctx, tx, userID, balance)
	})

	return err
}

func updateTier(ctx context.Context, tx pgx.Tx, userID uuid.UUID, balance int) error {
	tier := domain.TierForPoints(balance)

	_, err := tx.Exec(ctx,
		`UPDATE users SET loyalty_tier = $2 WHERE id = $1`, userID, string(tier))
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}

	return nil
}
