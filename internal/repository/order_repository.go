package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/domain"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/samber/lo"
	"golang.org/x/text/currency"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrIdempotencyConflict signals a concurrent commit already used the
	// same idempotency key; the caller should look up the existing order.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)

const uniqueViolation = "23505"

// orderNumberAttempts bounds retries when a generated order number collides.
const orderNumberAttempts = 3

type orderRepository struct {
	db DB
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{db: pool}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var o domain.Order

	if len(order.Items) == 0 {
		return o, errors.New("no items in order")
	}
	if order.IsGuest() && order.GuestEmail == "" {
		return o, domain.ErrGuestEmailRequired
	}

	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return o, fmt.Errorf("marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return o, fmt.Errorf("marshal billing address: %w", err)
	}

	inserted, err := withTx(ctx, r.db, func(tx pgx.Tx) (domain.Order, error) {
		result := order

		if err := r.insertOrderRow(ctx, tx, &result, shippingJSON, billingJSON); err != nil {
			return result, err
		}

		// TODO: switch to pgx.Batch once item counts grow
		for _, item := range result.Items {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total, product_name, product_image, variant_info)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				result.ID, item.ProductID, item.Quantity, item.UnitPrice.Amount, item.LineTotal.Amount,
				item.ProductName, emptyToNil(item.ProductImage), nilIfEmptyJSON(item.VariantInfo))
			if err != nil {
				return result, fmt.Errorf("insert order item[%s]: %w", item.ProductID, err)
			}
		}

		return result, nil
	})
	if err != nil {
		return o, err
	}

	return inserted, nil
}

// insertOrderRow inserts the order record, regenerating the order number on a
// uniqueness conflict. Each attempt runs in a savepoint so a failed insert
// does not poison the surrounding transaction.
func (r *orderRepository) insertOrderRow(ctx context.Context, tx pgx.Tx, order *domain.Order, shippingJSON, billingJSON []byte) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderNumber := domain.NewOrderNumber()

		inner, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("tx.Begin: %w", err)
		}

		err = inner.QueryRow(ctx,
			`INSERT INTO orders (user_id, guest_email, order_number, idempotency_key,
			                     subtotal, tax_amount, shipping_amount, discount_amount,
			                     points_used, points_earned, total_amount, currency,
			                     payment_method, shipping_address, billing_address, tracking_token)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			 RETURNING id, status, payment_status, created_at, updated_at`,
			order.UserID, emptyToNil(order.GuestEmail), orderNumber, emptyToNil(order.IdempotencyKey),
			order.Subtotal.Amount, order.TaxAmount.Amount, order.ShippingAmount.Amount, order.DiscountAmount.Amount,
			order.PointsUsed, order.PointsEarned, order.TotalAmount.Amount, order.TotalAmount.Currency.String(),
			emptyToNil(order.PaymentMethod), shippingJSON, billingJSON, emptyToNil(order.TrackingToken),
		).Scan(&order.ID, &order.Status, &order.PaymentStatus, &order.CreatedAt, &order.UpdatedAt)

		if err == nil {
			order.OrderNumber = orderNumber
			return inner.Commit(ctx)
		}

		if rollbackErr := inner.Rollback(ctx); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("savepoint rollback: %w", rollbackErr))
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "orders_idempotency_key_key" {
				return ErrIdempotencyConflict
			}
			// order number collided, try a fresh one
			continue
		}

		return fmt.Errorf("insert order: %w", err)
	}

	return fmt.Errorf("insert order: gave up after %d number collisions", orderNumberAttempts)
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if orderID == uuid.Nil {
		return domain.Order{}, errors.New("orderID is empty")
	}

	return r.getOrderBy(ctx, "id = $1", orderID)
}

func (r *orderRepository) GetOrderByTrackingToken(ctx context.Context, token string) (domain.Order, error) {
	if token == "" {
		return domain.Order{}, errors.New("token is empty")
	}

	return r.getOrderBy(ctx, "tracking_token = $1", token)
}

func (r *orderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (domain.Order, error) {
	if key == "" {
		return domain.Order{}, errors.New("key is empty")
	}

	return r.getOrderBy(ctx, "idempotency_key = $1", key)
}

const orderColumns = `id, user_id, guest_email, order_number, status, payment_status,
	subtotal, tax_amount, shipping_amount, discount_amount, points_used, points_earned,
	total_amount, currency, payment_method, shipping_address, billing_address,
	tracking_token, created_at, updated_at`

func (r *orderRepository) getOrderBy(ctx context.Context, where string, arg any) (domain.Order, error) {
	var o domain.Order

	order, err := withTx(ctx, r.db, func(tx pgx.Tx) (domain.Order, error) {
		row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)

		dbOrder, err := scanOrder(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return o, ErrNotFound
			}
			return o, fmt.Errorf("scanOrder: %w", err)
		}

		items, err := getOrderItems(ctx, tx, dbOrder.ID, dbOrder.TotalAmount.Currency)
		if err != nil {
			return o, fmt.Errorf("getOrderItems: %w", err)
		}
		dbOrder.Items = items

		return dbOrder, nil
	})
	if err != nil {
		return o, err
	}

	return order, nil
}

func (r *orderRepository) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	if userID == uuid.Nil {
		return nil, errors.New("userID is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, order_number, status, payment_status, total_amount, currency, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var summaries []domain.OrderSummary
	for rows.Next() {
		var (
			s            domain.OrderSummary
			status       string
			payStatus    string
			currencyCode string
		)

		if err := rows.Scan(&s.ID, &s.OrderNumber, &status, &payStatus, &s.TotalAmount.Amount, &currencyCode, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		if s.Status, err = domain.ToOrderStatus(status); err != nil {
			return nil, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
		}
		if s.PaymentStatus, err = domain.ToPaymentStatus(payStatus); err != nil {
			return nil, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", payStatus, err)
		}
		if s.TotalAmount.Currency, err = currency.ParseISO(currencyCode); err != nil {
			return nil, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	if orderID == uuid.Nil {
		return errors.New("orderID is empty")
	}
	if status == "" {
		return errors.New("status is empty")
	}

	_, err := withTx(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		var current string

		err := tx.QueryRow(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, ErrNotFound
			}
			return struct{}{}, fmt.Errorf("select status: %w", err)
		}

		currentStatus, err := domain.ToOrderStatus(current)
		if err != nil {
			return struct{}{}, fmt.Errorf("domain.ToOrderStatus[%s]: %w", current, err)
		}

		if !currentStatus.CanTransitionTo(status) {
			return struct{}{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, status)
		if err != nil {
			return struct{}{}, fmt.Errorf("update status: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

// MarkPaid flips both the order state and the payment axis. It is the entry
// point a payment webhook would call; checkout itself never reaches it.
func (r *orderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return errors.New("orderID is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = 'paid', payment_status = 'paid', updated_at = now()
		 WHERE id = $1 AND status = 'pending'`, orderID)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("mark paid: %w", ErrNotFound)
	}

	return nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o             domain.Order
		guestEmail    *string
		status        string
		payStatus     string
		currencyCode  string
		paymentMethod *string
		shippingJSON  []byte
		billingJSON   []byte
		trackingToken *string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&o.ID, &o.UserID, &guestEmail, &o.OrderNumber, &status, &payStatus,
		&o.Subtotal.Amount, &o.TaxAmount.Amount, &o.ShippingAmount.Amount, &o.DiscountAmount.Amount,
		&o.PointsUsed, &o.PointsEarned, &o.TotalAmount.Amount, &currencyCode, &paymentMethod,
		&shippingJSON, &billingJSON, &trackingToken, &createdAt, &updatedAt)
	if err != nil {
		return o, err
	}

	parsedCurrency, err := currency.ParseISO(currencyCode)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}
	for _, m := range []*domain.Money{&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount} {
		m.Currency = parsedCurrency
	}

	if o.Status, err = domain.ToOrderStatus(status); err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}
	if o.PaymentStatus, err = domain.ToPaymentStatus(payStatus); err != nil {
		return o, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", payStatus, err)
	}

	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("unmarshal billing address: %w", err)
	}

	o.GuestEmail = lo.FromPtr(guestEmail)
	o.PaymentMethod = lo.FromPtr(paymentMethod)
	o.TrackingToken = lo.FromPtr(trackingToken)
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt

	return o, nil
}

func getOrderItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, unit currency.Unit) ([]domain.OrderItem, error) {
	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity, unit_price, line_total, product_name, product_image, variant_info
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("tx.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item  domain.OrderItem
			image *string
		)

		err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice.Amount, &item.LineTotal.Amount,
			&item.ProductName, &image, &item.VariantInfo)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		item.UnitPrice.Currency = unit
		item.LineTotal.Currency = unit
		item.ProductImage = lo.FromPtr(image)

		items = append(items, item)
	}

	return items, rows.Err()
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfEmptyJSON(j []byte) []byte {
	if len(j) == 0 {
		return nil
	}
	return j
}
