package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
	"golang.org/x/text/currency"
)

var ErrProductNotFound = errors.New("product not found")

type catalogRepository struct {
	db DB
}

func NewCatalog(pool *pgxpool.Pool) port.CatalogRepository {
	return &catalogRepository{db: pool}
}

func NewCatalogWithTx(tx pgx.Tx) port.CatalogRepository {
	return &catalogRepository{db: tx}
}

const productColumns = `id, name, price_amount, price_currency, image, stock, status, created_at, updated_at`

func (r *catalogRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var p domain.Product

	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, domain.ProductNotFoundError{ProductID: productID}
		}
		return p, fmt.Errorf("scanProduct: %w", err)
	}

	return p, nil
}

func (r *catalogRepository) GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanProduct: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// ReserveStock claims stock for every reservation inside one transaction.
// Each decrement is a single conditional update, so two concurrent checkouts
// for the same product cannot both pass a stale stock check. If any line
// fails, the transaction rolls back every decrement already applied.
func (r *catalogRepository) ReserveStock(ctx context.Context, reservations []port.StockReservation) (map[uuid.UUID]int, error) {
	if len(reservations) == 0 {
		return nil, errors.New("no reservations")
	}

	for _, res := range reservations {
		if res.Quantity < 1 {
			return nil, fmt.Errorf("reservation for product %s: quantity must be positive", res.ProductID)
		}
	}

	prevStock, err := withTx(ctx, r.db, func(tx pgx.Tx) (map[uuid.UUID]int, error) {
		prev := make(map[uuid.UUID]int, len(reservations))

		for _, res := range reservations {
			var before int

			err := tx.QueryRow(ctx,
				`UPDATE products
				 SET stock = stock - $2, updated_at = now()
				 WHERE id = $1 AND status = 'active' AND stock >= $2
				 RETURNING stock + $2`,
				res.ProductID, res.Quantity).Scan(&before)
			if err == nil {
				prev[res.ProductID] = before
				continue
			}

			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("decrement stock[%s]: %w", res.ProductID, err)
			}

			return nil, r.reservationFailure(ctx, tx, res)
		}

		return prev, nil
	})
	if err != nil {
		return nil, err
	}

	return prevStock, nil
}

// reservationFailure explains why the conditional decrement matched no row.
func (r *catalogRepository) reservationFailure(ctx context.Context, tx pgx.Tx, res port.StockReservation) error {
	var (
		stock  int
		status string
	)

	err := tx.QueryRow(ctx,
		`SELECT stock, status FROM products WHERE id = $1`, res.ProductID).Scan(&stock, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProductNotFoundError{ProductID: res.ProductID}
		}
		return fmt.Errorf("inspect product[%s]: %w", res.ProductID, err)
	}

	if status != string(domain.ProductStatusActive) {
		return domain.ProductUnavailableError{ProductID: res.ProductID, Status: domain.ProductStatus(status)}
	}

	return domain.InsufficientStockError{
		ProductID: res.ProductID,
		Requested: res.Quantity,
		Available: stock,
	}
}

// ReleaseStock reverses reservations with plain additive increments.
func (r *catalogRepository) ReleaseStock(ctx context.Context, reservations []port.StockReservation) error {
	for _, res := range reservations {
		cmdTag, err := r.db.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
			res.ProductID, res.Quantity)
		if err != nil {
			return fmt.Errorf("increment stock[%s]: %w", res.ProductID, err)
		}

		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("increment stock[%s]: %w", res.ProductID, ErrProductNotFound)
		}
	}

	return nil
}

func (r *catalogRepository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int

	err := r.db.QueryRow(ctx,
		`UPDATE products
		 SET stock = stock + $2, updated_at = now()
		 WHERE id = $1 AND stock + $2 >= 0
		 RETURNING stock`,
		productID, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust stock[%s]: %w", productID, err)
	}

	// zero rows means either a missing product or an adjustment that
	// would take stock below zero
	var current int
	if err := r.db.QueryRow(ctx,
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("adjust stock[%s]: %w", productID, ErrProductNotFound)
		}
		return 0, fmt.Errorf("inspect product[%s]: %w", productID, err)
	}

	return 0, domain.InsufficientStockError{ProductID: productID, Requested: -delta, Available: current}
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p             domain.Product
		priceCurrency string
		image         *string
		status        string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&p.ID, &p.Name, &p.Price.Amount, &priceCurrency, &image, &p.Stock, &status, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}

	parsedCurrency, err := currency.ParseISO(priceCurrency)
	if err != nil {
		return p, fmt.Errorf("currency[%s] is not valid: %w", priceCurrency, err)
	}
	p.Price.Currency = parsedCurrency

	productStatus, err := domain.ToProductStatus(status)
	if err != nil {
		return p, fmt.Errorf("domain.ToProductStatus[%s]: %w", status, err)
	}
	p.Status = productStatus

	if image != nil {
		p.Image = *image
	}
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	return p, nil
}
