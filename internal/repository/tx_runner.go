package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/outbox"
	"github.com/nikolayk812/luxcore/internal/port"
)

type txRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) port.TxRunner {
	return &txRunner{pool: pool}
}

// InTx hands fn a set of repositories all bound to one transaction.
func (r *txRunner) InTx(ctx context.Context, fn func(stores port.TxStores) error) (txErr error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pool.Begin: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := tx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	stores := port.TxStores{
		Orders:  NewOrderWithTx(tx),
		Coupons: NewCouponWithTx(tx),
		Loyalty: NewLoyaltyWithTx(tx),
		Events:  outbox.NewWriterWithTx(tx),
	}

	if err := fn(stores); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}
